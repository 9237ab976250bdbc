package datasets

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitMinMaxRoundTrip(t *testing.T) {
	train := []float64{10, 20, math.NaN(), 30}
	s, err := FitMinMax(train)
	require.NoError(t, err)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 30.0, s.Max)
	assert.False(t, s.Degenerate)
	assert.True(t, math.IsNaN(train[2]), "input must not be modified")

	out := s.Transform(train)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1}, []float64{out[0], out[1], out[3]}, 1e-12)
	assert.True(t, math.IsNaN(out[2]))

	back := s.Inverse(out)
	for i, v := range train {
		if math.IsNaN(v) {
			assert.True(t, math.IsNaN(back[i]))
			continue
		}
		assert.InDelta(t, v, back[i], 1e-9*math.Max(1, math.Abs(v)))
	}
}

func TestMinMaxOutOfRangeIsNotClipped(t *testing.T) {
	s, err := FitMinMax([]float64{0, 100})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, s.TransformValue(150), 1e-12)
	assert.InDelta(t, -0.25, s.TransformValue(-25), 1e-12)
	assert.InDelta(t, 150.0, s.InverseValue(1.5), 1e-12)
}

func TestMinMaxTransformIsDeterministic(t *testing.T) {
	s, err := FitMinMax([]float64{-3, 7, 2.5})
	require.NoError(t, err)
	in := []float64{-3, 0, 2.5, 7, 11}
	assert.Equal(t, s.Transform(in), s.Transform(in))

	// training values land in [0, 1]
	for _, v := range s.Transform([]float64{-3, 7, 2.5}) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestMinMaxConstantTarget(t *testing.T) {
	s, err := FitMinMax([]float64{5, 5, 5, math.NaN()})
	require.NoError(t, err)
	assert.True(t, s.Degenerate)
	assert.Equal(t, 0.0, s.Scale())

	out := s.Transform([]float64{5, 7, 3})
	assert.Equal(t, []float64{0, 0, 0}, out)
	for _, v := range out {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.Equal(t, []float64{5, 5}, s.Inverse([]float64{0, 0.7}))
}

func TestFitMinMaxNoFiniteValues(t *testing.T) {
	_, err := FitMinMax([]float64{math.NaN(), math.Inf(1)})
	assert.True(t, errors.Is(err, ErrNoFiniteValues))

	_, err = FitMinMax(nil)
	assert.True(t, errors.Is(err, ErrNoFiniteValues))
}
