package lstm

import (
	"errors"
	"fmt"
)

// ErrStateMismatch is returned by LoadState when the stored parameters do
// not match the model's architecture.
var ErrStateMismatch = errors.New("parameter state does not match model")

// State returns a copy of every parameter's values keyed by name.
func (m *Model) State() map[string][]float64 {
	out := make(map[string][]float64)
	for _, p := range m.Parameters() {
		out[p.Name] = append([]float64(nil), p.Value...)
	}
	return out
}

// LoadState overwrites the parameters with values from state. Every
// parameter must be present with the right size and no extra names are
// allowed. Gradients are cleared.
func (m *Model) LoadState(state map[string][]float64) error {
	params := m.Parameters()
	if len(state) != len(params) {
		return fmt.Errorf("%w: %d stored parameters, model has %d", ErrStateMismatch, len(state), len(params))
	}
	for _, p := range params {
		v, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("%w: missing %q", ErrStateMismatch, p.Name)
		}
		if len(v) != p.Size() {
			return fmt.Errorf("%w: %q has %d values, expected %d", ErrStateMismatch, p.Name, len(v), p.Size())
		}
	}
	for _, p := range params {
		copy(p.Value, state[p.Name])
		p.ZeroGrad()
	}
	return nil
}

// FromState builds a model for cfg and loads state into it.
func FromState(cfg Config, state map[string][]float64) (*Model, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := m.LoadState(state); err != nil {
		return nil, err
	}
	return m, nil
}
