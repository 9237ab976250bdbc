package datasets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return s
}

func TestBuildWindows(t *testing.T) {
	s := ramp(100)
	X, y, err := BuildWindows(s, 18, 1)
	require.NoError(t, err)
	require.Len(t, X, 82)
	require.Len(t, y, 82)

	assert.Equal(t, s[0:18], X[0])
	assert.Equal(t, s[18], y[0])
	assert.Equal(t, s[81:99], X[81])
	assert.Equal(t, s[99], y[81])
	for _, w := range X {
		assert.Len(t, w, 18)
	}
}

func TestBuildWindowsStepAhead(t *testing.T) {
	s := ramp(10)
	X, y, err := BuildWindows(s, 3, 4)
	require.NoError(t, err)
	require.Len(t, X, 10-3-4+1)
	for i := range X {
		assert.Equal(t, s[i:i+3], X[i])
		assert.Equal(t, s[i+3+4-1], y[i])
	}
}

func TestBuildWindowsCount(t *testing.T) {
	for n := 0; n < 30; n++ {
		for w := 1; w < 8; w++ {
			for st := 1; st < 5; st++ {
				X, y, err := BuildWindows(ramp(n), w, st)
				require.NoError(t, err)
				want := max(0, n-w-st+1)
				assert.Len(t, X, want, "n=%d w=%d s=%d", n, w, st)
				assert.Len(t, y, want, "n=%d w=%d s=%d", n, w, st)
				assert.Equal(t, want, WindowCount(n, w, st))
			}
		}
	}
}

func TestBuildWindowsShortSeries(t *testing.T) {
	X, y, err := BuildWindows(ramp(18), 18, 1)
	require.NoError(t, err)
	assert.NotNil(t, X)
	assert.NotNil(t, y)
	assert.Empty(t, X)
	assert.Empty(t, y)
}

func TestBuildWindowsInvalid(t *testing.T) {
	_, _, err := BuildWindows(ramp(10), 0, 1)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
	_, _, err = BuildWindows(ramp(10), 3, 0)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
}

func TestBuildWindowsCopiesInput(t *testing.T) {
	s := ramp(5)
	X, _, err := BuildWindows(s, 2, 1)
	require.NoError(t, err)
	X[0][0] = 99
	assert.Equal(t, 0.0, s[0])
	assert.Equal(t, 1.0, X[1][0])
}
