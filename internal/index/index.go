package index

// Index is the built, immutable k-d tree over a fingerprint store's
// projected windows. Safe for concurrent read-only use once constructed.
type Index struct {
	rows     rowStore
	tree     *kdNode
	w, k     int
	leafSize int
}

// W returns the window width the index was built with.
func (ix *Index) W() int { return ix.w }

// K returns the key dimension the index was built with.
func (ix *Index) K() int { return ix.k }

// Len returns the number of rows (keys) in the index.
func (ix *Index) Len() int {
	if ix == nil || ix.rows == nil {
		return 0
	}
	return ix.rows.Len()
}

// Neighbors returns the kNN nearest keys to queryKey by squared Euclidean
// distance, in non-decreasing order of distance. Ties are broken by lower
// video_idx, then lower window_start. Never fails for valid inputs; an
// empty index yields an empty result.
func (ix *Index) Neighbors(queryKey []uint32, kNN int) []Match {
	if ix == nil || ix.tree == nil || ix.rows.Len() == 0 {
		return nil
	}
	return search(ix.rows, ix.tree, queryKey, kNN)
}
