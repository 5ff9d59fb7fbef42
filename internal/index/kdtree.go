package index

import "sort"

// kdNode is one node of the static k-d tree. Interior nodes split on axis
// at pivot; leaf nodes hold up to leafSize row indices scanned linearly.
// The tree never mutates after buildTree returns.
type kdNode struct {
	axis  int
	pivot uint32

	left, right *kdNode

	// leaf holds indices into the backing rowStore; non-nil only on leaves.
	leaf []int32
}

func (n *kdNode) isLeaf() bool {
	return n.leaf != nil
}

// buildTree builds a balanced static k-d tree over every row in rs,
// splitting on a round-robin axis by depth and partitioning each level
// around its median, the way a classic k-d tree (and scikit-learn's
// KDTree) does. Leaves hold at most leafSize rows.
func buildTree(rs rowStore, k, leafSize int) *kdNode {
	n := rs.Len()
	indices := make([]int32, n)
	for i := range indices {
		indices[i] = int32(i)
	}
	return buildNode(rs, indices, 0, k, leafSize)
}

func buildNode(rs rowStore, indices []int32, depth, k, leafSize int) *kdNode {
	if len(indices) <= leafSize {
		return &kdNode{leaf: indices}
	}

	axis := depth % k
	sort.Slice(indices, func(i, j int) bool {
		ri, rj := rs.At(int(indices[i])), rs.At(int(indices[j]))
		return ri.Key[axis] < rj.Key[axis]
	})

	mid := len(indices) / 2
	pivot := rs.At(int(indices[mid])).Key[axis]

	left := buildNode(rs, indices[:mid], depth+1, k, leafSize)
	right := buildNode(rs, indices[mid:], depth+1, k, leafSize)

	return &kdNode{axis: axis, pivot: pivot, left: left, right: right}
}

// candidate is one entry of the bounded k-NN result set during search.
type candidate struct {
	dist        uint64
	videoIdx    uint32
	windowStart uint32
}

// less implements the query's tie-break rule: nearer first, then lower
// video_idx, then lower window_start.
func (c candidate) less(o candidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}
	if c.videoIdx != o.videoIdx {
		return c.videoIdx < o.videoIdx
	}
	return c.windowStart < o.windowStart
}

// search walks the tree collecting the kNN nearest rows to query, in
// non-decreasing distance order with the documented tie-break.
func search(rs rowStore, root *kdNode, query []uint32, kNN int) []Match {
	if root == nil || kNN <= 0 {
		return nil
	}

	best := make([]candidate, 0, kNN)

	var visit func(n *kdNode)
	visit = func(n *kdNode) {
		if n.isLeaf() {
			for _, idx := range n.leaf {
				r := rs.At(int(idx))
				c := candidate{dist: squaredDistance(query, r.Key), videoIdx: r.VideoIdx, windowStart: r.WindowStart}
				best = insertCandidate(best, c, kNN)
			}
			return
		}

		var first, second *kdNode
		diff := int64(query[n.axis]) - int64(n.pivot)
		if diff <= 0 {
			first, second = n.left, n.right
		} else {
			first, second = n.right, n.left
		}

		visit(first)

		// Only descend into the far side if the current worst candidate
		// (or an incomplete result set) could still be beaten by a point
		// across the splitting plane. A point at exactly the worst distance
		// can still win on the video_idx/window_start tie-break.
		absDiff := diff
		if absDiff < 0 {
			absDiff = -absDiff
		}
		planeDist := uint64(absDiff) * uint64(absDiff)
		if len(best) < kNN || planeDist <= best[len(best)-1].dist {
			visit(second)
		}
	}

	visit(root)

	out := make([]Match, len(best))
	for i, c := range best {
		out[i] = Match{VideoIdx: c.videoIdx, WindowStart: c.windowStart}
	}
	return out
}

// insertCandidate inserts c into the sorted-by-less slice best, keeping at
// most kNN entries.
func insertCandidate(best []candidate, c candidate, kNN int) []candidate {
	pos := sort.Search(len(best), func(i int) bool { return c.less(best[i]) })
	if pos == len(best) {
		if len(best) < kNN {
			return append(best, c)
		}
		return best
	}
	if len(best) < kNN {
		best = append(best, candidate{})
	}
	copy(best[pos+1:], best[pos:len(best)-1])
	best[pos] = c
	return best
}

func squaredDistance(a, b []uint32) uint64 {
	var sum uint64
	for i := range a {
		d := int64(a[i]) - int64(b[i])
		sum += uint64(d * d)
	}
	return sum
}
