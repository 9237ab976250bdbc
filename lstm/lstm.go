// Package lstm implements a stacked LSTM regressor with a linear head on
// the last time step, trained with backpropagation through time.
//
// The model is self-contained pure Go: gate math follows the usual
// (input, forget, cell, output) layout, so a layer's stacked weight matrix
// has 4*hidden rows. Dropout, when configured, is applied to the outputs of
// every layer except the last and only in train mode.
package lstm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/Noofbiz/powercast/train"
	"gonum.org/v1/gonum/floats"
)

// Config holds the architecture. InputSize is the number of channels per
// time step.
type Config struct {
	InputSize  int     `yaml:"input_size"`
	HiddenSize int     `yaml:"hidden_size"`
	NumLayers  int     `yaml:"num_layers"`
	Dropout    float64 `yaml:"dropout"`
	Seed       int64   `yaml:"seed"`
}

// Validate checks the architecture.
func (c Config) Validate() error {
	var errs []error
	if c.InputSize < 1 {
		errs = append(errs, fmt.Errorf("input size must be >= 1, got %d", c.InputSize))
	}
	if c.HiddenSize < 1 {
		errs = append(errs, fmt.Errorf("hidden size must be >= 1, got %d", c.HiddenSize))
	}
	if c.NumLayers < 1 {
		errs = append(errs, fmt.Errorf("num layers must be >= 1, got %d", c.NumLayers))
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		errs = append(errs, fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout))
	}
	return errors.Join(errs...)
}

// layer is one LSTM cell applied across the sequence.
type layer struct {
	in int
	wx *train.Param // [4H, in]
	wh *train.Param // [4H, H]
	b  *train.Param // [4H]
}

// Model is a stacked LSTM followed by a linear head. It implements
// train.Regressor.
type Model struct {
	cfg    Config
	layers []*layer
	headW  *train.Param // [1, H]
	headB  *train.Param // [1]

	mode  train.Mode
	rng   *rand.Rand
	cache []sampleCache
}

// step holds everything backward needs from one cell evaluation.
type step struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	c, tc           []float64
}

type sampleCache struct {
	steps [][]step      // [layer][t]
	masks [][][]float64 // [layer][t], nil when no dropout was applied
	top   []float64     // last hidden state of the top layer
}

// New builds a model with weights drawn uniformly from
// [-1/sqrt(H), 1/sqrt(H)] using cfg.Seed. The model starts in train mode.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
	H := cfg.HiddenSize
	k := 1 / math.Sqrt(float64(H))
	in := cfg.InputSize
	for l := range cfg.NumLayers {
		ly := &layer{
			in: in,
			wx: train.NewParam(fmt.Sprintf("lstm.%d.weight_ih", l), 4*H, in),
			wh: train.NewParam(fmt.Sprintf("lstm.%d.weight_hh", l), 4*H, H),
			b:  train.NewParam(fmt.Sprintf("lstm.%d.bias", l), 4*H),
		}
		m.uniform(ly.wx.Value, k)
		m.uniform(ly.wh.Value, k)
		m.uniform(ly.b.Value, k)
		m.layers = append(m.layers, ly)
		in = H
	}
	m.headW = train.NewParam("head.weight", 1, H)
	m.headB = train.NewParam("head.bias", 1)
	m.uniform(m.headW.Value, k)
	m.uniform(m.headB.Value, k)
	return m, nil
}

func (m *Model) uniform(dst []float64, k float64) {
	for i := range dst {
		dst[i] = (m.rng.Float64()*2 - 1) * k
	}
}

// Config returns the architecture the model was built with.
func (m *Model) Config() Config { return m.cfg }

// SetMode switches dropout on (train) or off (eval).
func (m *Model) SetMode(mode train.Mode) { m.mode = mode }

// Mode returns the current mode.
func (m *Model) Mode() train.Mode { return m.mode }

// Parameters returns every trainable parameter, layers first, head last.
func (m *Model) Parameters() []*train.Param {
	ps := make([]*train.Param, 0, 3*len(m.layers)+2)
	for _, ly := range m.layers {
		ps = append(ps, ly.wx, ly.wh, ly.b)
	}
	return append(ps, m.headW, m.headB)
}

// Forward predicts one value per input window. Each input holds
// window*InputSize values, time-major. Windows in a batch may differ in
// length.
func (m *Model) Forward(inputs [][]float64) ([]float64, error) {
	C := m.cfg.InputSize
	out := make([]float64, len(inputs))
	cache := make([]sampleCache, len(inputs))
	for b, x := range inputs {
		if len(x) == 0 || len(x)%C != 0 {
			return nil, fmt.Errorf("%w: input %d has %d values, not a positive multiple of %d channels",
				train.ErrShapeMismatch, b, len(x), C)
		}
		seq := make([][]float64, len(x)/C)
		for t := range seq {
			seq[t] = x[t*C : (t+1)*C]
		}
		out[b], cache[b] = m.forwardSample(seq)
	}
	m.cache = cache
	return out, nil
}

func (m *Model) forwardSample(seq [][]float64) (float64, sampleCache) {
	H := m.cfg.HiddenSize
	L := len(m.layers)
	sc := sampleCache{
		steps: make([][]step, L),
		masks: make([][][]float64, L),
	}
	dropout := m.mode == train.ModeTrain && m.cfg.Dropout > 0

	for l, ly := range m.layers {
		h := make([]float64, H)
		c := make([]float64, H)
		steps := make([]step, len(seq))
		outSeq := make([][]float64, len(seq))
		for t, x := range seq {
			st := ly.cell(x, h, c)
			steps[t] = st
			h, c = hiddenOf(st), st.c
			outSeq[t] = h
		}
		sc.steps[l] = steps

		if dropout && l < L-1 {
			keep := 1 - m.cfg.Dropout
			masks := make([][]float64, len(seq))
			for t := range outSeq {
				mask := make([]float64, H)
				dropped := make([]float64, H)
				for j := range mask {
					if m.rng.Float64() < keep {
						mask[j] = 1 / keep
					}
					dropped[j] = outSeq[t][j] * mask[j]
				}
				masks[t] = mask
				outSeq[t] = dropped
			}
			sc.masks[l] = masks
		}
		seq = outSeq
	}

	sc.top = seq[len(seq)-1]
	return floats.Dot(m.headW.Value, sc.top) + m.headB.Value[0], sc
}

// cell evaluates one LSTM step.
func (ly *layer) cell(x, hPrev, cPrev []float64) step {
	H := len(hPrev)
	st := step{
		x: x, hPrev: hPrev, cPrev: cPrev,
		i: make([]float64, H), f: make([]float64, H),
		g: make([]float64, H), o: make([]float64, H),
		c: make([]float64, H), tc: make([]float64, H),
	}
	for r := range 4 * H {
		z := ly.b.Value[r] +
			floats.Dot(ly.wx.Value[r*ly.in:(r+1)*ly.in], x) +
			floats.Dot(ly.wh.Value[r*H:(r+1)*H], hPrev)
		j := r % H
		switch r / H {
		case 0:
			st.i[j] = sigmoid(z)
		case 1:
			st.f[j] = sigmoid(z)
		case 2:
			st.g[j] = math.Tanh(z)
		case 3:
			st.o[j] = sigmoid(z)
		}
	}
	for j := range H {
		st.c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
		st.tc[j] = math.Tanh(st.c[j])
	}
	return st
}

func hiddenOf(st step) []float64 {
	h := make([]float64, len(st.o))
	for j := range h {
		h[j] = st.o[j] * st.tc[j]
	}
	return h
}

// Backward accumulates gradients for the last Forward call, given the
// derivative of the loss with respect to each prediction.
func (m *Model) Backward(dPred []float64) error {
	if len(dPred) != len(m.cache) {
		return fmt.Errorf("%w: %d gradients for %d predictions", train.ErrShapeMismatch, len(dPred), len(m.cache))
	}
	H := m.cfg.HiddenSize
	for b, d := range dPred {
		sc := m.cache[b]
		floats.AddScaled(m.headW.Grad, d, sc.top)
		m.headB.Grad[0] += d

		T := len(sc.steps[0])
		dhSeq := make([][]float64, T)
		for t := range dhSeq {
			dhSeq[t] = make([]float64, H)
		}
		floats.AddScaled(dhSeq[T-1], d, m.headW.Value)

		for l := len(m.layers) - 1; l >= 0; l-- {
			dxSeq := m.layers[l].backward(sc.steps[l], dhSeq)
			if l == 0 {
				break
			}
			if masks := sc.masks[l-1]; masks != nil {
				for t := range dxSeq {
					floats.Mul(dxSeq[t], masks[t])
				}
			}
			dhSeq = dxSeq
		}
	}
	return nil
}

// backward runs BPTT through one layer. dhSeq holds dLoss/dh_t arriving
// from above; the result holds dLoss/dx_t.
func (ly *layer) backward(steps []step, dhSeq [][]float64) [][]float64 {
	H := len(dhSeq[0])
	dxSeq := make([][]float64, len(steps))
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := make([]float64, 4*H)

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		for j := range H {
			dh := dhSeq[t][j] + dhNext[j]
			dc := dh*st.o[j]*(1-st.tc[j]*st.tc[j]) + dcNext[j]

			// pre-activation gradients, rows ordered i, f, g, o
			dz[j] = dc * st.g[j] * st.i[j] * (1 - st.i[j])
			dz[H+j] = dc * st.cPrev[j] * st.f[j] * (1 - st.f[j])
			dz[2*H+j] = dc * st.i[j] * (1 - st.g[j]*st.g[j])
			dz[3*H+j] = dh * st.tc[j] * st.o[j] * (1 - st.o[j])
			dcNext[j] = dc * st.f[j]
		}

		dx := make([]float64, ly.in)
		for j := range dhNext {
			dhNext[j] = 0
		}
		for r, g := range dz {
			if g == 0 {
				continue
			}
			wxRow := ly.wx.Value[r*ly.in : (r+1)*ly.in]
			whRow := ly.wh.Value[r*H : (r+1)*H]
			floats.AddScaled(ly.wx.Grad[r*ly.in:(r+1)*ly.in], g, st.x)
			floats.AddScaled(ly.wh.Grad[r*H:(r+1)*H], g, st.hPrev)
			ly.b.Grad[r] += g
			floats.AddScaled(dx, g, wxRow)
			floats.AddScaled(dhNext, g, whRow)
		}
		dxSeq[t] = dx
	}
	return dxSeq
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
