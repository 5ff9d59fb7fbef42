// Package segmenter reconstructs application-layer segment sizes from a
// stream of TLS-encrypted packet tuples, correcting for TLS and HTTP
// framing overhead and discarding bursts and keep-alive noise outside a
// plausible segment-size range.
package segmenter

import "fmt"

// Normative constants from the external packet-capture contract. These are
// also the configuration defaults; see internal/config.
const (
	HTTPHeaders          = 801
	TLSOverhead          = 1.0018
	SegmentTimeThreshold = 2.0 // seconds
	MinSegmentSize       = 5_000
	MaxSegmentSize       = 9_000_000
)

// Flow identifies a traffic flow by its endpoints. Extended forms may
// include ports; the base contract only requires src/dst IP.
type Flow struct {
	Src string
	Dst string
}

func (f Flow) String() string {
	return fmt.Sprintf("%s->%s", f.Src, f.Dst)
}

// Packet is one observed packet tuple, in timestamp order per flow.
type Packet struct {
	Flow Flow
	T    float64 // seconds, relative to capture start
	Size int64   // bytes on the wire
}

// Segment is one reconstructed application-layer segment, emitted when a
// sufficient inter-packet gap closes out the previous accumulation.
type Segment struct {
	Flow    Flow
	Elapsed float64 // last_t - init_t at emission time
	Size    int64   // captured, corrected segment size
}
