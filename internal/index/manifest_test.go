package index

import (
	"testing"

	"github.com/afylking/streamid/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestStore_RecordAndHistory(t *testing.T) {
	db, err := database.New(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	store := mustLoadStore(t, "v1,A,100,4.0,enc,1,2,3\n")
	ix, err := Build(store, BuildOptions{W: 3, K: 3, LeafSize: 400})
	require.NoError(t, err)

	ms, err := NewManifestStore(db)
	require.NoError(t, err)

	m, err := ms.Record(ix, "deadbeef", "/tmp/index.bin")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	history, err := ms.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].W)
	assert.Equal(t, "deadbeef", history[0].SourceHash)

	latest, err := ms.Latest()
	require.NoError(t, err)
	assert.Equal(t, m.ID, latest.ID)
}
