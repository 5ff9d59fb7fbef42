package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	data := "v1,A,100,4.0,enc,10,20,30,40,50,60\n"
	store := mustLoadStore(t, data)

	ix, err := Build(store, BuildOptions{W: 3, K: 3, LeafSize: 400})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, Save(ix, path))

	loaded, err := Load(path, 400)
	require.NoError(t, err)
	assert.Equal(t, ix.Len(), loaded.Len())
	assert.Equal(t, ix.W(), loaded.W())
	assert.Equal(t, ix.K(), loaded.K())

	neighbors := loaded.Neighbors([]uint32{10, 20, 30}, 1)
	require.Len(t, neighbors, 1)
	assert.Equal(t, uint32(0), neighbors[0].VideoIdx)
}

func TestLoad_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")

	data := "v1,A,100,4.0,enc,1,2,3\n"
	store := mustLoadStore(t, data)
	ix, err := Build(store, BuildOptions{W: 3, K: 3, LeafSize: 400})
	require.NoError(t, err)
	require.NoError(t, Save(ix, path))

	// Corrupt the version field (bytes 4..8, right after the 4-byte magic).
	corruptVersionField(t, path)

	_, err = Load(path, 400)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrVersionMismatch)
}
