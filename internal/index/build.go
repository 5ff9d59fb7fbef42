package index

import (
	"fmt"

	"github.com/afylking/streamid/internal/fingerprint"
	"github.com/afylking/streamid/internal/projector"
	"github.com/afylking/streamid/pkg/diskslice"
)

// defaultLeafSize matches the default used by the original scikit-learn
// KDTree construction this package's tree replaces.
const defaultLeafSize = 400

// BuildOptions configures Build.
type BuildOptions struct {
	W, K     int
	LeafSize int
	// DiskSpillThreshold is the estimated byte size above which the key
	// array spills to a disk-backed store instead of a plain slice.
	// Zero disables spilling.
	DiskSpillThreshold int64
}

// Build materializes all (video_idx, window_start) -> key rows from store
// via the projector and builds a static k-d tree over them.
//
// Total row count is Σ max(0, len(fingerprint) - W + 1) across every record
// in store. Fails with a *DimensionError if W, K are invalid.
func Build(store *fingerprint.Store, opts BuildOptions) (*Index, error) {
	if err := projector.ValidateDims(opts.W, opts.K); err != nil {
		return nil, &DimensionError{W: opts.W, K: opts.K}
	}
	leafSize := opts.LeafSize
	if leafSize <= 0 {
		leafSize = defaultLeafSize
	}

	total := 0
	for i := 0; i < store.Len(); i++ {
		fp := store.Fingerprint(i)
		if n := len(fp) - opts.W + 1; n > 0 {
			total += n
		}
	}

	rs, err := newRowStore(total, opts)
	if err != nil {
		return nil, err
	}

	keyBuf := make([]uint32, opts.K)
	for videoIdx := 0; videoIdx < store.Len(); videoIdx++ {
		fp := store.Fingerprint(videoIdx)
		if len(fp) < opts.W {
			continue
		}
		for start := 0; start+opts.W <= len(fp); start++ {
			projector.ProjectInto(keyBuf, fp[start:start+opts.W], opts.W, opts.K)
			key := make([]uint32, opts.K)
			copy(key, keyBuf)
			if err := rs.Append(row{Key: key, VideoIdx: uint32(videoIdx), WindowStart: uint32(start)}); err != nil {
				return nil, fmt.Errorf("index: appending row: %w", err)
			}
		}
	}

	tree := buildTree(rs, opts.K, leafSize)

	return &Index{
		rows:     rs,
		tree:     tree,
		w:        opts.W,
		k:        opts.K,
		leafSize: leafSize,
	}, nil
}

// appendableRowStore is implemented by both storage backends during build;
// the query-time rowStore interface is read-only.
type appendableRowStore interface {
	rowStore
	Append(row) error
}

func newRowStore(total int, opts BuildOptions) (appendableRowStore, error) {
	estimatedBytes := int64(total) * int64(opts.K*4+8)
	if opts.DiskSpillThreshold > 0 && estimatedBytes > opts.DiskSpillThreshold {
		ds, err := diskslice.New[row](diskslice.Options{
			MemoryThreshold:   opts.DiskSpillThreshold,
			EstimatedItemSize: opts.K*4 + 8,
			Name:              "streamid-index",
		})
		if err != nil {
			return nil, err
		}
		return &appendableDiskRowStore{diskRowStore{slice: ds}}, nil
	}
	return &appendableMemRowStore{memRowStore{rows: make([]row, 0, total)}}, nil
}

type appendableMemRowStore struct{ memRowStore }

func (m *appendableMemRowStore) Append(r row) error {
	m.rows = append(m.rows, r)
	return nil
}

type appendableDiskRowStore struct{ diskRowStore }

func (d *appendableDiskRowStore) Append(r row) error {
	return d.slice.Append(r)
}
