package index

import "github.com/afylking/streamid/pkg/diskslice"

// rowStore abstracts over the flat key array so the k-d tree builder and
// query path work identically whether the rows live in a plain slice or
// have spilled to the disk-backed overflow store. Very large fingerprint
// databases (N in the hundreds of millions) would not fit row-major in
// memory on modest hardware; the disk-backed path trades random-access
// latency for boundedness.
type rowStore interface {
	Len() int
	At(i int) row
}

// memRowStore is the common case: N is small enough to hold the full key
// matrix and back-pointer arrays in memory.
type memRowStore struct {
	rows []row
}

func (m *memRowStore) Len() int     { return len(m.rows) }
func (m *memRowStore) At(i int) row { return m.rows[i] }

// diskRowStore spills rows to a temp file via pkg/diskslice once the
// estimated in-memory footprint crosses the configured threshold.
type diskRowStore struct {
	slice *diskslice.DiskSlice[row]
}

func (d *diskRowStore) Len() int { return d.slice.Len() }

func (d *diskRowStore) At(i int) row {
	r, err := d.slice.Get(i)
	if err != nil {
		// The builder only ever indexes rows it itself appended; an error
		// here means storage was corrupted underneath us, which the
		// k-d tree has no recovery story for.
		panic(err)
	}
	return *r
}
