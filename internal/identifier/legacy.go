package identifier

import (
	"time"

	"github.com/afylking/streamid/internal/projector"
	"github.com/afylking/streamid/internal/segmenter"
)

// ingestLegacy implements the single-shot high-Pearson-threshold path:
// query the index for one neighbor and accept it as a definitive match if
// its correlation clears LegacyPearsonThreshold. No EMA fusion: an
// accepted match is recorded in the candidate table with alpha 1.0, and
// the table is not pruned on this path. Preserved as an alternative
// contract for tests.
func (id *Identifier) ingestLegacy(seg segmenter.Segment, fs *flowState, live []int64) (Event, bool) {
	key, err := projector.Project(live, id.opts.W, id.opts.K)
	if err != nil {
		return Event{}, false
	}

	neighbors := id.idx.Neighbors(key, 1)
	ev := Event{
		Flow:         seg.Flow,
		Elapsed:      seg.Elapsed,
		CapturedSize: seg.Size,
		State:        fs.state,
	}
	if len(neighbors) == 0 {
		return ev, true
	}

	n := neighbors[0]
	fp := id.store.Fingerprint(int(n.VideoIdx))
	start := int(n.WindowStart)
	if start+id.opts.W > len(fp) {
		return ev, true
	}

	neighborWindow := fp[start : start+id.opts.W]
	r := Pearson(live, neighborWindow)
	if r <= id.opts.LegacyPearsonThreshold {
		return ev, true
	}

	title := id.store.Video(int(n.VideoIdx)).ID
	fs.candidates.update(title, n.VideoIdx, n.WindowStart, append([]int64(nil), neighborWindow...), r, 1.0, time.Now())
	fs.state = StateIdentified

	ranked := fs.candidates.sorted()
	ev.State = fs.state
	ev.Best = id.matchInfo(ranked[0])
	return ev, true
}
