package segmenter

import (
	"math"
	"time"
)

// flowState is the per-flow accumulator the segmenter maintains across
// packets. It is never garbage collected by the segmenter itself; eviction
// of idle flows is a pipeline-level concern (internal/pipeline), not TS's.
type flowState struct {
	initT      float64
	lastT      float64
	partial    int64
	lastActive time.Time
}

// Options configures segment reconstruction thresholds. Zero-value Options
// mean the package's normative defaults.
type Options struct {
	SegmentTimeThreshold float64
	TLSOverhead          float64
	HTTPHeaders          int64
	MinSegmentSize       int64
	MaxSegmentSize       int64
}

// defaulted fills unset fields with the package's normative constants.
func (o Options) defaulted() Options {
	if o.SegmentTimeThreshold == 0 {
		o.SegmentTimeThreshold = SegmentTimeThreshold
	}
	if o.TLSOverhead == 0 {
		o.TLSOverhead = TLSOverhead
	}
	if o.HTTPHeaders == 0 {
		o.HTTPHeaders = HTTPHeaders
	}
	if o.MinSegmentSize == 0 {
		o.MinSegmentSize = MinSegmentSize
	}
	if o.MaxSegmentSize == 0 {
		o.MaxSegmentSize = MaxSegmentSize
	}
	return o
}

// Segmenter consumes packet tuples in timestamp order (per flow) and
// reconstructs application-layer segment sizes. A Segmenter is not safe
// for concurrent use; the pipeline feeds it from a single ingest goroutine.
type Segmenter struct {
	opts  Options
	flows map[Flow]*flowState
	now   func() time.Time
}

// New creates a Segmenter. A zero Options uses the package defaults.
func New(opts Options) *Segmenter {
	return &Segmenter{
		opts:  opts.defaulted(),
		flows: make(map[Flow]*flowState),
		now:   time.Now,
	}
}

// Ingest processes one packet and returns the Segment it closes out, if
// any. Every packet updates flow state; at most one Segment is ever
// produced per call.
func (s *Segmenter) Ingest(pkt Packet) (Segment, bool) {
	st, exists := s.flows[pkt.Flow]
	if !exists {
		s.flows[pkt.Flow] = &flowState{
			initT:      pkt.T,
			lastT:      pkt.T,
			partial:    pkt.Size,
			lastActive: s.now(),
		}
		return Segment{}, false
	}

	st.lastActive = s.now()

	var (
		seg Segment
		ok  bool
	)

	gap := pkt.T - st.lastT
	if gap > s.opts.SegmentTimeThreshold {
		captured := int64(math.Round(float64(st.partial)/s.opts.TLSOverhead)) - s.opts.HTTPHeaders
		if captured > s.opts.MinSegmentSize && captured < s.opts.MaxSegmentSize {
			seg = Segment{
				Flow:    pkt.Flow,
				Elapsed: st.lastT - st.initT,
				Size:    captured,
			}
			ok = true
		}
		st.partial = 0
	}

	st.lastT = pkt.T
	st.partial += pkt.Size

	return seg, ok
}

// ActiveFlows returns the number of flows with live accumulator state.
func (s *Segmenter) ActiveFlows() int {
	return len(s.flows)
}

// EvictIdle removes flow state that has not seen a packet more recently
// than olderThan, returning the number of flows evicted. This is the
// pipeline-level extension noted in the design: TS's own rules never GC
// flow state, but unbounded growth over very long runs needs a backstop.
func (s *Segmenter) EvictIdle(olderThan time.Time) int {
	evicted := 0
	for flow, st := range s.flows {
		if st.lastActive.Before(olderThan) {
			delete(s.flows, flow)
			evicted++
		}
	}
	return evicted
}
