package datasets

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned for a window size or horizon below one.
var ErrInvalidWindow = errors.New("invalid window parameters")

// WindowCount returns the number of samples BuildWindows produces for a
// series of length n.
func WindowCount(n, windowSize, stepAhead int) int {
	return max(0, n-windowSize-stepAhead+1)
}

// BuildWindows converts a series into sliding windows. For every start
// index i, X[i] holds series[i:i+windowSize] and y[i] holds
// series[i+windowSize+stepAhead-1]. A series too short for a single window
// yields empty slices, not an error.
func BuildWindows(series []float64, windowSize, stepAhead int) ([][]float64, []float64, error) {
	if windowSize < 1 || stepAhead < 1 {
		return nil, nil, fmt.Errorf("%w: window_size=%d step_ahead=%d", ErrInvalidWindow, windowSize, stepAhead)
	}

	n := WindowCount(len(series), windowSize, stepAhead)
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range n {
		w := make([]float64, windowSize)
		copy(w, series[i:i+windowSize])
		X[i] = w
		y[i] = series[i+windowSize+stepAhead-1]
	}
	return X, y, nil
}
