package identifier

import "time"

// Candidate is one flow's accumulated evidence toward a single title.
type Candidate struct {
	Title string

	EMAProba float64

	VideoIdx    uint32
	WindowStart uint32

	// LastMatchedWindow is the original, un-projected fingerprint window
	// this candidate was last compared against. Evidence re-accumulates
	// against it on rounds where the candidate isn't returned by a fresh
	// k-NN query.
	LastMatchedWindow []int64

	UpdatedAt time.Time
}

// candidateTable is a flow's bounded title -> Candidate map.
type candidateTable struct {
	maxSize int
	byTitle map[string]*Candidate
}

func newCandidateTable(maxSize int) *candidateTable {
	return &candidateTable{
		maxSize: maxSize,
		byTitle: make(map[string]*Candidate),
	}
}

// update applies one round of Pearson evidence r for title, creating the
// candidate if it doesn't exist (EMA initialized at 0 before this update).
func (t *candidateTable) update(title string, videoIdx, windowStart uint32, matchedWindow []int64, r, alpha float64, now time.Time) {
	c, exists := t.byTitle[title]
	if !exists {
		c = &Candidate{Title: title}
		t.byTitle[title] = c
	}
	c.EMAProba = updateEMA(c.EMAProba, r, alpha)
	c.VideoIdx = videoIdx
	c.WindowStart = windowStart
	c.LastMatchedWindow = matchedWindow
	c.UpdatedAt = now
}

// prune keeps at most maxSize candidates, dropping the lowest-EMA entries.
func (t *candidateTable) prune() {
	if len(t.byTitle) <= t.maxSize {
		return
	}
	ordered := t.sorted()
	for _, c := range ordered[t.maxSize:] {
		delete(t.byTitle, c.Title)
	}
}

// sorted returns all candidates ordered best-first: highest EMA, then most
// recently updated, then lowest video_idx.
func (t *candidateTable) sorted() []*Candidate {
	out := make([]*Candidate, 0, len(t.byTitle))
	for _, c := range t.byTitle {
		out = append(out, c)
	}
	sortCandidates(out)
	return out
}

func sortCandidates(cs []*Candidate) {
	// Insertion sort: candidate tables are bounded by MAX_MATCHES_PER_STREAM
	// (small), so this stays fast without pulling in sort.Slice's
	// allocation for a comparator closure on every call.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && candidateLess(cs[j], cs[j-1]); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

// candidateLess reports whether a ranks strictly better than b: higher EMA
// first, then more recently updated, then lower video_idx.
func candidateLess(a, b *Candidate) bool {
	if a.EMAProba != b.EMAProba {
		return a.EMAProba > b.EMAProba
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.VideoIdx < b.VideoIdx
}
