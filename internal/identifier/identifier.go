// Package identifier drives per-flow sliding windows of reconstructed
// segment sizes against the fingerprint index, corroborating k-d tree
// neighbors with Pearson correlation and fusing repeated evidence into a
// per-title confidence estimate via an exponential moving average.
package identifier

import (
	"time"

	"github.com/afylking/streamid/internal/fingerprint"
	"github.com/afylking/streamid/internal/index"
	"github.com/afylking/streamid/internal/projector"
	"github.com/afylking/streamid/internal/segmenter"
)

// State is a flow's position in the identification state machine.
type State int

const (
	StateInitializing State = iota
	StateAccumulating
	StateIdentified
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAccumulating:
		return "accumulating"
	case StateIdentified:
		return "identified"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options configures an Identifier. Zero values fall back to the package's
// normative defaults (see DefaultNBBestMatches etc).
type Options struct {
	W, K                    int
	NBBestMatches           int
	MaxMatchesPerStream     int
	Alpha                   float64
	IdentificationThreshold float64
	BufferTimeSeconds       float64

	// LegacyMode enables the single-shot high-Pearson-threshold path
	// instead of EMA fusion. Preserved for tests; the EMA path is
	// canonical.
	LegacyMode             bool
	LegacyPearsonThreshold float64
}

const (
	DefaultNBBestMatches           = 10
	DefaultMaxMatchesPerStream     = 100
	DefaultIdentificationThreshold = 0.75
	DefaultLegacyPearsonThreshold  = 0.99999999
)

func (o Options) defaulted() Options {
	if o.NBBestMatches == 0 {
		o.NBBestMatches = DefaultNBBestMatches
	}
	if o.MaxMatchesPerStream == 0 {
		o.MaxMatchesPerStream = DefaultMaxMatchesPerStream
	}
	if o.Alpha == 0 {
		o.Alpha = DefaultAlpha
	}
	if o.IdentificationThreshold == 0 {
		o.IdentificationThreshold = DefaultIdentificationThreshold
	}
	if o.BufferTimeSeconds == 0 {
		o.BufferTimeSeconds = DefaultBufferTimeSeconds
	}
	if o.LegacyPearsonThreshold == 0 {
		o.LegacyPearsonThreshold = DefaultLegacyPearsonThreshold
	}
	return o
}

// MatchInfo describes one candidate's current best match, for the event's
// best/second/third-best fields.
type MatchInfo struct {
	Title       string
	VideoIdx    uint32
	WindowStart uint32
	Probability float64
	Position    float64
}

// Event is the structured record emitted per processed segment, destined
// for the sink.
type Event struct {
	Flow         segmenter.Flow
	Elapsed      float64
	CapturedSize int64
	State        State

	Best       *MatchInfo
	SecondBest *MatchInfo
	ThirdBest  *MatchInfo
}

// flowState is the per-flow accumulator: its sliding window, state, and
// candidate table.
type flowState struct {
	state      State
	window     *slidingWindow
	candidates *candidateTable
}

// Identifier drives the identification state machine across flows. Not
// safe for concurrent use; fed from the pipeline's single ingest goroutine.
type Identifier struct {
	store *fingerprint.Store
	idx   *index.Index
	opts  Options
	flows map[segmenter.Flow]*flowState
}

// New creates an Identifier over store and idx, which must share the same
// W used to build idx.
func New(store *fingerprint.Store, idx *index.Index, opts Options) *Identifier {
	return &Identifier{
		store: store,
		idx:   idx,
		opts:  opts.defaulted(),
		flows: make(map[segmenter.Flow]*flowState),
	}
}

// Ingest processes one segment emitted by the traffic segmenter for its
// flow, returning the resulting Event once the flow's window has filled.
// Returns ok=false while still accumulating the initial window.
func (id *Identifier) Ingest(seg segmenter.Segment) (Event, bool) {
	fs, exists := id.flows[seg.Flow]
	if exists && fs.state == StateTerminated {
		return Event{}, false
	}
	if !exists {
		fs = &flowState{
			state:      StateInitializing,
			window:     newSlidingWindow(id.opts.W),
			candidates: newCandidateTable(id.opts.MaxMatchesPerStream),
		}
		id.flows[seg.Flow] = fs
	}

	fs.window.push(seg.Size)
	if !fs.window.full() {
		return Event{}, false
	}
	if fs.state == StateInitializing {
		fs.state = StateAccumulating
	}

	live := fs.window.snapshot()
	now := time.Now()

	if id.opts.LegacyMode {
		return id.ingestLegacy(seg, fs, live)
	}

	key, err := projector.Project(live, id.opts.W, id.opts.K)
	if err != nil {
		return Event{}, false
	}

	neighbors := id.idx.Neighbors(key, id.opts.NBBestMatches)
	returned := make(map[string]bool, len(neighbors))

	for _, n := range neighbors {
		fp := id.store.Fingerprint(int(n.VideoIdx))
		start := int(n.WindowStart)
		if start+id.opts.W > len(fp) {
			continue
		}
		neighborWindow := append([]int64(nil), fp[start:start+id.opts.W]...)
		r := Pearson(live, neighborWindow)

		title := id.store.Video(int(n.VideoIdx)).ID
		returned[title] = true
		fs.candidates.update(title, n.VideoIdx, n.WindowStart, neighborWindow, r, id.opts.Alpha, now)
	}

	for title, c := range fs.candidates.byTitle {
		if returned[title] {
			continue
		}
		r := Pearson(live, c.LastMatchedWindow)
		fs.candidates.update(title, c.VideoIdx, c.WindowStart, c.LastMatchedWindow, r, id.opts.Alpha, now)
	}

	fs.candidates.prune()

	ranked := fs.candidates.sorted()
	if len(ranked) > 0 && ranked[0].EMAProba >= id.opts.IdentificationThreshold {
		fs.state = StateIdentified
	}

	ev := Event{
		Flow:         seg.Flow,
		Elapsed:      seg.Elapsed,
		CapturedSize: seg.Size,
		State:        fs.state,
	}
	if len(ranked) > 0 {
		ev.Best = id.matchInfo(ranked[0])
	}
	if len(ranked) > 1 {
		ev.SecondBest = id.matchInfo(ranked[1])
	}
	if len(ranked) > 2 {
		ev.ThirdBest = id.matchInfo(ranked[2])
	}

	return ev, true
}

func (id *Identifier) matchInfo(c *Candidate) *MatchInfo {
	video := id.store.Video(int(c.VideoIdx))
	fp := id.store.Fingerprint(int(c.VideoIdx))
	pos := EstimatePosition(c.WindowStart, len(fp), video.DurationSeconds, video.SegmentLength, id.opts.W, id.opts.BufferTimeSeconds)
	return &MatchInfo{
		Title:       video.Title,
		VideoIdx:    c.VideoIdx,
		WindowStart: c.WindowStart,
		Probability: c.EMAProba,
		Position:    pos,
	}
}

// Terminate marks a flow as terminated; identification state for it is no
// longer updated and later segments for it yield no events. The pipeline
// and the eviction job do not call it.
func (id *Identifier) Terminate(flow segmenter.Flow) {
	if fs, ok := id.flows[flow]; ok {
		fs.state = StateTerminated
	}
}

// State returns the current identification state for flow, or
// StateInitializing if the flow is unknown.
func (id *Identifier) State(flow segmenter.Flow) State {
	if fs, ok := id.flows[flow]; ok {
		return fs.state
	}
	return StateInitializing
}
