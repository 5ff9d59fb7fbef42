package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afylking/streamid/internal/identifier"
	"github.com/afylking/streamid/internal/segmenter"
)

func identifierEventFixture() identifier.Event {
	return identifier.Event{
		Flow:         segmenter.Flow{Src: "a", Dst: "b"},
		CapturedSize: 1000,
		Elapsed:      1.5,
		State:        identifier.StateIdentified,
		Best:         &identifier.MatchInfo{Title: "Show", Probability: 0.9, Position: 60},
	}
}

func TestEvictionJob_RunEvictsIdleFlows(t *testing.T) {
	seg := segmenter.New(segmenter.Options{})
	seg.Ingest(segmenter.Packet{Flow: segmenter.Flow{Src: "a", Dst: "b"}, T: 0, Size: 1000})
	assert.Equal(t, 1, seg.ActiveFlows())

	frozen := time.Now().Add(time.Hour)
	job := NewEvictionJob(seg, time.Minute, nil)
	job.clock = func() time.Time { return frozen }
	job.Run()

	assert.Equal(t, 0, seg.ActiveFlows())
}

func TestToSinkEvent_MapsMatches(t *testing.T) {
	ev := identifierEventFixture()
	out := toSinkEvent(ev)
	assert.Equal(t, "a", out.Src)
	assert.Equal(t, "identified", out.State)
	if assert.NotNil(t, out.Best) {
		assert.Equal(t, "Show", out.Best.Title)
	}
}
