package datasets

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T, n, window int) *WindowDataset {
	t.Helper()
	X, y, err := BuildWindows(ramp(n), window, 1)
	require.NoError(t, err)
	ds, err := NewWindowDataset("train", X, y, window, 1)
	require.NoError(t, err)
	return ds
}

func TestWindowDatasetBatch(t *testing.T) {
	ds := buildDataset(t, 20, 4)
	require.Equal(t, 16, ds.Len())

	in, la, err := ds.Example(3)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5, 6}, in)
	assert.Equal(t, []float32{7}, la)

	// Example hands out copies
	in[0] = -1
	again, _, _ := ds.Example(3)
	assert.Equal(t, float32(3), again[0])

	inputs, labels, err := ds.Batch([]int{0, 15})
	require.NoError(t, err)
	assert.Equal(t, []float32{15, 16, 17, 18}, inputs[1])
	assert.Equal(t, []float32{19}, labels[1])

	_, _, err = ds.Batch([]int{16})
	assert.Error(t, err)
}

func TestNewWindowDatasetValidation(t *testing.T) {
	_, err := NewWindowDataset("x", [][]float64{{1, 2}}, []float64{1, 2}, 2, 1)
	assert.Error(t, err)

	_, err = NewWindowDataset("x", [][]float64{{1, 2, 3}}, []float64{1}, 2, 1)
	assert.Error(t, err)

	_, err = NewWindowDataset("x", nil, nil, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	ds, err := NewWindowDataset("empty", [][]float64{}, []float64{}, 18, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestWindowBatchFlatShapes(t *testing.T) {
	ds := buildDataset(t, 30, 6)
	inputs, labels, err := ds.Batch([]int{0, 1, 2})
	require.NoError(t, err)

	flat, err := MakeWindowBatchFlat(inputs, labels, 6, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, flat.BatchSize)
	assert.Len(t, flat.Inputs, 18)
	assert.Equal(t, []float32{6, 7, 8}, flat.Labels)

	inT, laT, err := flat.ToGomlxTensors()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 1}, inT.Shape().Dimensions)
	assert.Equal(t, []int{3, 1}, laT.Shape().Dimensions)

	_, err = MakeWindowBatchFlat(inputs, labels[:2], 6, 1)
	assert.Error(t, err)
}

func TestWindowDatasetYield(t *testing.T) {
	ds := buildDataset(t, 14, 4) // 10 windows
	ds.BatchSize = 4

	var sizes []int
	for {
		spec, inputs, labels, err := ds.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "train", spec)
		require.Len(t, inputs, 1)
		require.Len(t, labels, 1)
		sizes = append(sizes, inputs[0].Shape().Dimensions[0])
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)

	require.NoError(t, ds.Restart())
	_, inputs, _, err := ds.Yield()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 1}, inputs[0].Shape().Dimensions)
}

func TestWindowDatasetShuffleIsDeterministic(t *testing.T) {
	a := buildDataset(t, 60, 5)
	b := buildDataset(t, 60, 5)
	a.Shuffle(7)
	b.Shuffle(7)
	assert.Equal(t, a.order, b.order)

	// a repeated shuffle starts from the natural order again
	a.Shuffle(7)
	assert.Equal(t, b.order, a.order)

	seen := make(map[int]bool)
	for _, i := range a.order {
		seen[i] = true
	}
	assert.Len(t, seen, a.Len())
}
