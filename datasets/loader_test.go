package datasets

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderSequential(t *testing.T) {
	ds := buildDataset(t, 15, 5) // 10 windows
	l, err := NewLoader(ds, 4, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, l.NumBatches())

	batches := l.Epoch(0)
	assert.Equal(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9}}, batches)
	assert.Equal(t, batches, l.Epoch(5), "unshuffled order does not depend on epoch")
}

func TestLoaderShuffleCoversEveryIndex(t *testing.T) {
	ds := buildDataset(t, 105, 5) // 100 windows
	l, err := NewLoader(ds, 32, true, 42)
	require.NoError(t, err)

	for epoch := range 3 {
		var all []int
		batches := l.Epoch(epoch)
		require.Len(t, batches, 4)
		assert.Len(t, batches[3], 4)
		for _, b := range batches {
			all = append(all, b...)
		}
		sort.Ints(all)
		assert.Equal(t, ramp(100), toFloat(all))
	}

	assert.Equal(t, l.Epoch(1), l.Epoch(1))
	assert.NotEqual(t, l.Epoch(0), l.Epoch(1))

	other, err := NewLoader(ds, 32, true, 42)
	require.NoError(t, err)
	assert.Equal(t, l.Epoch(2), other.Epoch(2))
}

func TestLoaderEmptyDataset(t *testing.T) {
	ds, err := NewWindowDataset("valid", [][]float64{}, []float64{}, 3, 1)
	require.NoError(t, err)
	l, err := NewLoader(ds, 8, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, l.NumBatches())
	assert.Empty(t, l.Epoch(0))
}

func TestNewLoaderErrors(t *testing.T) {
	_, err := NewLoader(nil, 4, false, 0)
	assert.Error(t, err)

	ds := buildDataset(t, 10, 2)
	_, err = NewLoader(ds, 0, false, 0)
	assert.Error(t, err)
}

func toFloat(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
