package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV_Basic(t *testing.T) {
	data := strings.Join([]string{
		"v1,Some Show S01E01,1200,4.0,720p,5000,6000,7000",
		"v1,Some Show S01E01,1200,4.0,1080p,9000,10000,11000",
		"v2,Other Show,600,4.0,720p,5000,5500",
	}, "\n") + "\n"

	store, err := LoadCSV(strings.NewReader(data), "test.csv")
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	v0 := store.Video(0)
	assert.Equal(t, "v1", v0.ID)
	assert.Equal(t, "Some Show S01E01", v0.Title)
	assert.Equal(t, int64(1200), v0.DurationSeconds)
	assert.InDelta(t, 4.0, v0.SegmentLength, 1e-9)
	assert.Equal(t, "720p", v0.EncodingTag)
	assert.Equal(t, []int64{5000, 6000, 7000}, store.Fingerprint(0))

	ids := store.IDs()
	assert.Len(t, ids, 2)
	_, ok := ids["v1"]
	assert.True(t, ok)
}

func TestLoadCSV_TooFewColumns(t *testing.T) {
	data := "v1,title,100,4.0\n"
	_, err := LoadCSV(strings.NewReader(data), "test.csv")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, 1, loadErr.Row)
}

func TestLoadCSV_NonIntegerSegment(t *testing.T) {
	data := "v1,title,100,4.0,720p,5000,notanumber\n"
	_, err := LoadCSV(strings.NewReader(data), "test.csv")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.ErrorIs(t, err, ErrMalformedRow)
}

func TestLoadCSV_NonIntegerDuration(t *testing.T) {
	data := "v1,title,notanumber,4.0,720p,5000,6000\n"
	_, err := LoadCSV(strings.NewReader(data), "test.csv")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMalformedRow)
}

func TestLoadCSV_InsertionOrderIsVideoIdx(t *testing.T) {
	data := strings.Join([]string{
		"a,A,100,4.0,enc,1,2,3",
		"b,B,200,4.0,enc,4,5,6",
		"c,C,300,4.0,enc,7,8,9",
	}, "\n") + "\n"

	store, err := LoadCSV(strings.NewReader(data), "test.csv")
	require.NoError(t, err)
	assert.Equal(t, "a", store.Video(0).ID)
	assert.Equal(t, "b", store.Video(1).ID)
	assert.Equal(t, "c", store.Video(2).ID)
}
