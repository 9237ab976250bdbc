// Package train holds the model-agnostic side of training: the regressor
// capability interface, parameter storage, optimizers and the
// training/evaluation loop.
package train

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRun is returned when Run is called on a Trainer that has
	// already left the Uninitialized state.
	ErrAlreadyRun = errors.New("trainer has already run")

	// ErrShapeMismatch is returned by a Regressor when inputs or gradients
	// do not match the model's dimensions.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Mode switches behavior that differs between training and inference,
// e.g. dropout.
type Mode int

const (
	ModeTrain Mode = iota
	ModeEval
)

func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeEval:
		return "eval"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Param is one named, flat parameter tensor together with its gradient
// accumulator. Shape is informational; Value and Grad always have the same
// length, the product of Shape.
type Param struct {
	Name  string
	Shape []int
	Value []float64
	Grad  []float64
}

// NewParam allocates a zeroed parameter of the given shape.
func NewParam(name string, shape ...int) *Param {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Param{
		Name:  name,
		Shape: append([]int(nil), shape...),
		Value: make([]float64, n),
		Grad:  make([]float64, n),
	}
}

// Size is the number of scalar values.
func (p *Param) Size() int { return len(p.Value) }

// ZeroGrad clears the gradient accumulator.
func (p *Param) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Regressor is a sequence model mapping a window to one predicted value.
//
// Forward takes a batch of flattened (window, channels) inputs, time-major,
// and returns one prediction per input. Backward accumulates into each
// Param.Grad the gradient of the loss given dLoss/dPrediction for the most
// recent Forward call. Gradients are not cleared by Backward.
type Regressor interface {
	Forward(inputs [][]float64) ([]float64, error)
	Backward(dPred []float64) error
	Parameters() []*Param
	SetMode(m Mode)
}

// ZeroGrads clears the gradients of every parameter.
func ZeroGrads(params []*Param) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// CountParams returns the total number of scalar parameters.
func CountParams(params []*Param) int {
	n := 0
	for _, p := range params {
		n += p.Size()
	}
	return n
}
