package train

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Optimizer applies one update to params using their accumulated gradients.
type Optimizer interface {
	Step(params []*Param)
}

// Adam is the Adam optimizer with bias correction. Moment estimates are
// kept per parameter and created lazily on the first step.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step int
	m, v map[*Param][]float64
}

// NewAdam returns Adam with the usual defaults (0.9, 0.999, 1e-8).
func NewAdam(lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		m:            make(map[*Param][]float64),
		v:            make(map[*Param][]float64),
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int { return a.step }

// Step applies one Adam update. step is 1-based for bias correction.
func (a *Adam) Step(params []*Param) {
	if a.m == nil {
		a.m = make(map[*Param][]float64)
		a.v = make(map[*Param][]float64)
	}
	a.step++
	c1 := 1 - math.Pow(a.Beta1, float64(a.step))
	c2 := 1 - math.Pow(a.Beta2, float64(a.step))
	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, p.Size())
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, p.Size())
			a.v[p] = v
		}
		for i, g := range p.Grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			mHat := m[i] / c1
			vHat := v[i] / c2
			p.Value[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
}

// SGD is plain stochastic gradient descent.
type SGD struct {
	LearningRate float64
}

// Step applies value -= lr * grad.
func (s *SGD) Step(params []*Param) {
	for _, p := range params {
		floats.AddScaled(p.Value, -s.LearningRate, p.Grad)
	}
}

// NewOptimizer builds an optimizer by name: "adam" (default when empty)
// or "sgd".
func NewOptimizer(name string, lr float64) (Optimizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "adam":
		return NewAdam(lr), nil
	case "sgd":
		return &SGD{LearningRate: lr}, nil
	}
	return nil, fmt.Errorf("unknown optimizer %q, expected \"adam\" or \"sgd\"", name)
}

// GradNorm returns the global L2 norm over all gradients.
func GradNorm(params []*Param) float64 {
	var sum float64
	for _, p := range params {
		n := floats.Norm(p.Grad, 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

// ClipGradNorm rescales all gradients so their global L2 norm is at most
// maxNorm. It returns the norm before clipping. maxNorm <= 0 disables it.
func ClipGradNorm(params []*Param, maxNorm float64) float64 {
	norm := GradNorm(params)
	if maxNorm <= 0 || norm <= maxNorm || norm == 0 {
		return norm
	}
	scale := maxNorm / norm
	for _, p := range params {
		floats.Scale(scale, p.Grad)
	}
	return norm
}
