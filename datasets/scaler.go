package datasets

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"k8s.io/klog/v2"
)

// ErrNoFiniteValues is returned when a scaler is fitted on data without a
// single finite value.
var ErrNoFiniteValues = errors.New("no finite values to fit scaler")

// MinMaxScaler maps values linearly so that the fitted minimum becomes 0
// and the fitted maximum becomes 1. Inputs outside the fitted range map
// outside [0, 1]; nothing is clipped.
//
// When the fitted range is zero (constant training target) the scaler is
// Degenerate: Transform returns 0 for every finite input and Inverse returns
// Min for every input.
type MinMaxScaler struct {
	Min        float64
	Max        float64
	Degenerate bool
}

// FitMinMax computes the bounds over the finite values of train. NaN
// (missing) entries are ignored. The input is not modified.
func FitMinMax(train []float64) (MinMaxScaler, error) {
	finite := make([]float64, 0, len(train))
	for _, v := range train {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return MinMaxScaler{}, ErrNoFiniteValues
	}

	s := MinMaxScaler{
		Min: floats.Min(finite),
		Max: floats.Max(finite),
	}
	if s.Max == s.Min {
		s.Degenerate = true
		klog.InfoS("Training target has zero range, scaled values fixed at 0", "value", s.Min)
	}
	return s, nil
}

// Scale returns max - min.
func (s MinMaxScaler) Scale() float64 {
	return s.Max - s.Min
}

// TransformValue scales one value.
func (s MinMaxScaler) TransformValue(v float64) float64 {
	if s.Degenerate {
		if math.IsNaN(v) {
			return v
		}
		return 0
	}
	return (v - s.Min) / (s.Max - s.Min)
}

// InverseValue maps one scaled value back to original units.
func (s MinMaxScaler) InverseValue(n float64) float64 {
	if s.Degenerate {
		if math.IsNaN(n) {
			return n
		}
		return s.Min
	}
	return n*(s.Max-s.Min) + s.Min
}

// Transform returns a new slice with every value scaled.
func (s MinMaxScaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.TransformValue(v)
	}
	return out
}

// Inverse returns a new slice with every value mapped back to original units.
func (s MinMaxScaler) Inverse(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.InverseValue(v)
	}
	return out
}
