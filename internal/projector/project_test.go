package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_EqualPartitionSum(t *testing.T) {
	window := []int64{10, 20, 30, 40, 50, 60}
	key, err := Project(window, 6, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{30, 70, 110}, key)
}

func TestProject_WEqualsK(t *testing.T) {
	window := []int64{5, 9, 1000}
	key, err := Project(window, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 9, 1000}, key)
}

func TestProject_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name string
		w, k int
	}{
		{"k greater than w", 4, 5},
		{"w not divisible by k", 5, 2},
		{"zero k", 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := make([]int64, tt.w)
			_, err := Project(window, tt.w, tt.k)
			require.Error(t, err)
			var dimErr *DimensionError
			require.ErrorAs(t, err, &dimErr)
		})
	}
}

func TestProject_ClampsNegativeSums(t *testing.T) {
	window := []int64{-100, -200}
	key, err := Project(window, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, key)
}

func TestProjectInto_ZeroAllocationPath(t *testing.T) {
	window := []int64{1, 2, 3, 4}
	dst := make([]uint32, 2)
	ProjectInto(dst, window, 4, 2)
	assert.Equal(t, []uint32{3, 7}, dst)
}

func TestProjectInto_PanicsOnLengthMismatch(t *testing.T) {
	window := []int64{1, 2, 3, 4}
	dst := make([]uint32, 3)
	assert.Panics(t, func() {
		ProjectInto(dst, window, 4, 2)
	})
}

func TestValidateDims(t *testing.T) {
	require.NoError(t, ValidateDims(12, 6))
	require.NoError(t, ValidateDims(12, 12))
	require.Error(t, ValidateDims(12, 5))
	require.Error(t, ValidateDims(12, 0))
	require.Error(t, ValidateDims(5, 12))
}
