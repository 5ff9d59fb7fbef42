package identifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCandidateTable_UpdateInitializesEMAFromZero(t *testing.T) {
	ct := newCandidateTable(10)
	now := time.Now()
	ct.update("t1", 0, 0, nil, 0.8, 0.33, now)

	c := ct.byTitle["t1"]
	assert.InDelta(t, 0.264, c.EMAProba, 1e-9) // (1-0.33)*0 + 0.33*0.8
}

func TestCandidateTable_PruneKeepsHighestEMA(t *testing.T) {
	ct := newCandidateTable(2)
	now := time.Now()
	ct.update("low", 0, 0, nil, 0.1, 1.0, now)
	ct.update("mid", 0, 0, nil, 0.5, 1.0, now)
	ct.update("high", 0, 0, nil, 0.9, 1.0, now)

	ct.prune()

	assert.Len(t, ct.byTitle, 2)
	_, hasLow := ct.byTitle["low"]
	assert.False(t, hasLow)
	_, hasHigh := ct.byTitle["high"]
	assert.True(t, hasHigh)
}

func TestCandidateTable_SortedTieBreakByRecency(t *testing.T) {
	ct := newCandidateTable(10)
	t0 := time.Now()
	t1 := t0.Add(time.Second)

	ct.update("older", 5, 0, nil, 0.5, 1.0, t0)
	ct.update("newer", 2, 0, nil, 0.5, 1.0, t1)

	ranked := ct.sorted()
	assert.Equal(t, "newer", ranked[0].Title)
}

func TestCandidateTable_SortedTieBreakByVideoIdx(t *testing.T) {
	ct := newCandidateTable(10)
	now := time.Now()

	ct.update("b", 5, 0, nil, 0.5, 1.0, now)
	ct.update("a", 1, 0, nil, 0.5, 1.0, now)

	ranked := ct.sorted()
	assert.Equal(t, uint32(1), ranked[0].VideoIdx)
}
