// Package index builds and queries the static k-d tree over projected
// fingerprint windows: for every (video_idx, window_start) pair it stores
// the K-dimensional key and the back-pointer, and answers approximate
// nearest-neighbor queries over the key space.
package index

import "fmt"

// Match is one (video_idx, window_start) result of a Neighbors query.
type Match struct {
	VideoIdx    uint32
	WindowStart uint32
}

// DimensionError reports a build request whose (W, K) pair is invalid.
type DimensionError struct {
	W int
	K int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("index: invalid dimensions W=%d K=%d", e.W, e.K)
}

// row is one entry of the flat key array: its projected key plus the
// back-pointer to the fingerprint window it was computed from.
type row struct {
	Key         []uint32
	VideoIdx    uint32
	WindowStart uint32
}
