package train

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdamFirstStep(t *testing.T) {
	p := NewParam("w", 2)
	p.Value[0], p.Value[1] = 1, 1
	p.Grad[0], p.Grad[1] = 0.5, -3

	a := NewAdam(0.01)
	a.Step([]*Param{p})

	// bias-corrected first step moves each value by ~lr against the gradient sign
	assert.InDelta(t, 0.99, p.Value[0], 1e-6)
	assert.InDelta(t, 1.01, p.Value[1], 1e-6)
	assert.Equal(t, 1, a.Steps())
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	p := NewParam("x", 1)
	p.Value[0] = 5
	a := NewAdam(0.1)
	for range 500 {
		p.ZeroGrad()
		p.Grad[0] = 2 * (p.Value[0] - 2)
		a.Step([]*Param{p})
	}
	assert.InDelta(t, 2.0, p.Value[0], 1e-2)
}

func TestSGDStep(t *testing.T) {
	p := NewParam("w", 3)
	copy(p.Value, []float64{1, 2, 3})
	copy(p.Grad, []float64{1, -1, 0})
	(&SGD{LearningRate: 0.5}).Step([]*Param{p})
	assert.Equal(t, []float64{0.5, 2.5, 3}, p.Value)
}

func TestClipGradNorm(t *testing.T) {
	a := NewParam("a", 1)
	b := NewParam("b", 1)
	a.Grad[0], b.Grad[0] = 3, 4
	params := []*Param{a, b}

	assert.InDelta(t, 5.0, GradNorm(params), 1e-12)
	before := ClipGradNorm(params, 1)
	assert.InDelta(t, 5.0, before, 1e-12)
	assert.InDelta(t, 0.6, a.Grad[0], 1e-12)
	assert.InDelta(t, 0.8, b.Grad[0], 1e-12)

	// below the threshold nothing changes
	ClipGradNorm(params, 10)
	assert.InDelta(t, 0.6, a.Grad[0], 1e-12)

	// disabled
	a.Grad[0] = 100
	ClipGradNorm(params, 0)
	assert.Equal(t, 100.0, a.Grad[0])
}

func TestNewOptimizer(t *testing.T) {
	opt, err := NewOptimizer("", 0.1)
	require.NoError(t, err)
	assert.IsType(t, &Adam{}, opt)

	opt, err = NewOptimizer(" SGD ", 0.1)
	require.NoError(t, err)
	assert.IsType(t, &SGD{}, opt)

	_, err = NewOptimizer("rmsprop", 0.1)
	assert.Error(t, err)
}

func TestParamHelpers(t *testing.T) {
	p := NewParam("w", 2, 3)
	assert.Equal(t, 6, p.Size())
	assert.Equal(t, []int{2, 3}, p.Shape)
	p.Grad[4] = 1
	ZeroGrads([]*Param{p})
	assert.Equal(t, make([]float64, 6), p.Grad)
	assert.Equal(t, 7, CountParams([]*Param{p, NewParam("b", 1)}))
	assert.Equal(t, "eval", ModeEval.String())
	assert.Equal(t, "done", StateDone.String())
	assert.False(t, math.IsNaN(GradNorm(nil)))
}
