package identifier

import (
	"strings"
	"testing"

	"github.com/afylking/streamid/internal/fingerprint"
	"github.com/afylking/streamid/internal/index"
	"github.com/afylking/streamid/internal/segmenter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T, csvData string, w, k int) (*fingerprint.Store, *index.Index) {
	t.Helper()
	store, err := fingerprint.LoadCSV(strings.NewReader(csvData), "test.csv")
	require.NoError(t, err)
	idx, err := index.Build(store, index.BuildOptions{W: w, K: k, LeafSize: 400})
	require.NoError(t, err)
	return store, idx
}

func TestIngest_AccumulatesUntilWindowFull(t *testing.T) {
	store, idx := buildTestIndex(t, "v1,Show,1200,4.0,enc,10,20,30,40,50,60\n", 3, 3)
	id := New(store, idx, Options{W: 3, K: 3})

	flow := segmenter.Flow{Src: "a", Dst: "b"}
	_, ok := id.Ingest(segmenter.Segment{Flow: flow, Size: 10})
	assert.False(t, ok)
	_, ok = id.Ingest(segmenter.Segment{Flow: flow, Size: 20})
	assert.False(t, ok)

	ev, ok := id.Ingest(segmenter.Segment{Flow: flow, Size: 30})
	assert.True(t, ok)
	require.NotNil(t, ev.Best)
}

func TestIngest_RepeatedExactMatchesReachIdentifiedThreshold(t *testing.T) {
	store, idx := buildTestIndex(t, "v1,Show,1200,4.0,enc,10,20,30,40,50,60\n", 3, 3)
	id := New(store, idx, Options{W: 3, K: 3})

	flow := segmenter.Flow{Src: "a", Dst: "b"}
	var ev Event
	var ok bool
	for _, size := range []int64{10, 20, 30, 40, 50, 60} {
		ev, ok = id.Ingest(segmenter.Segment{Flow: flow, Size: size})
	}
	require.True(t, ok)

	require.NotNil(t, ev.Best)
	assert.Equal(t, "Show", ev.Best.Title)
	assert.Equal(t, StateIdentified, ev.State)
	assert.GreaterOrEqual(t, ev.Best.Probability, DefaultIdentificationThreshold)
}

func TestIngest_LegacyModeAcceptsOnlyAboveThreshold(t *testing.T) {
	store, idx := buildTestIndex(t, "v1,Show,1200,4.0,enc,10,20,30,40,50,60\n", 3, 3)
	id := New(store, idx, Options{W: 3, K: 3, LegacyMode: true})

	flow := segmenter.Flow{Src: "a", Dst: "b"}
	id.Ingest(segmenter.Segment{Flow: flow, Size: 10})
	id.Ingest(segmenter.Segment{Flow: flow, Size: 20})
	ev, ok := id.Ingest(segmenter.Segment{Flow: flow, Size: 30})
	require.True(t, ok)
	require.NotNil(t, ev.Best)
	assert.Equal(t, StateIdentified, ev.State)
}

func TestState_UnknownFlowIsInitializing(t *testing.T) {
	store, idx := buildTestIndex(t, "v1,Show,1200,4.0,enc,1,2,3\n", 3, 3)
	id := New(store, idx, Options{W: 3, K: 3})
	assert.Equal(t, StateInitializing, id.State(segmenter.Flow{Src: "x", Dst: "y"}))
}

func TestTerminate_SetsTerminatedState(t *testing.T) {
	store, idx := buildTestIndex(t, "v1,Show,1200,4.0,enc,1,2,3\n", 3, 3)
	id := New(store, idx, Options{W: 3, K: 3})
	flow := segmenter.Flow{Src: "x", Dst: "y"}
	id.Ingest(segmenter.Segment{Flow: flow, Size: 1})
	id.Terminate(flow)
	assert.Equal(t, StateTerminated, id.State(flow))
}
