package index

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// corruptVersionField overwrites the version field of a saved index file
// (the 4 bytes immediately after the magic) with a value that can never
// match binaryVersion.
func corruptVersionField(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[4:8], binaryVersion+999)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
