// Package bundle persists a trained model together with everything needed
// to use it on new data: architecture, parameters, scaler bounds and
// window parameters.
package bundle

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Noofbiz/powercast/config"
	"github.com/Noofbiz/powercast/datasets"
	"github.com/Noofbiz/powercast/lstm"
	"k8s.io/klog/v2"
)

// Version of the on-disk format. Bump when Bundle changes incompatibly.
const Version = 1

// ErrVersion is returned when loading a bundle written by another format
// version.
var ErrVersion = errors.New("bundle version mismatch")

// Param is one named model parameter. Params are kept in model order so
// that encoding the same bundle twice yields the same bytes.
type Param struct {
	Name   string
	Shape  []int
	Values []float64
}

// Bundle is the persisted artifact.
type Bundle struct {
	Version   int
	CreatedAt int64 // unix seconds

	Model  lstm.Config
	Params []Param
	Scaler datasets.MinMaxScaler

	TargetCol   string
	WindowSize  int
	StepAhead   int
	TrainMonths int
	ValidMonths int
	Resolution  time.Duration

	ValidLoss float64
}

// New captures model, scaler and the data parameters of cfg.
func New(model *lstm.Model, scaler datasets.MinMaxScaler, cfg config.Config, validLoss float64) *Bundle {
	b := &Bundle{
		Version:     Version,
		CreatedAt:   time.Now().Unix(),
		Model:       model.Config(),
		Scaler:      scaler,
		TargetCol:   cfg.TargetCol,
		WindowSize:  cfg.WindowSize,
		StepAhead:   cfg.StepAhead,
		TrainMonths: cfg.TrainMonths,
		ValidMonths: cfg.ValidMonths,
		Resolution:  cfg.Resolution,
		ValidLoss:   validLoss,
	}
	for _, p := range model.Parameters() {
		b.Params = append(b.Params, Param{
			Name:   p.Name,
			Shape:  append([]int(nil), p.Shape...),
			Values: append([]float64(nil), p.Value...),
		})
	}
	return b
}

// BuildModel reconstructs the model. The result starts in train mode; call
// SetMode(train.ModeEval) before predicting.
func (b *Bundle) BuildModel() (*lstm.Model, error) {
	state := make(map[string][]float64, len(b.Params))
	for _, p := range b.Params {
		if _, dup := state[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q in bundle", p.Name)
		}
		state[p.Name] = p.Values
	}
	return lstm.FromState(b.Model, state)
}

// Apply overlays the bundle's data and architecture parameters on cfg, so
// a saved model is evaluated with the windows and splits it was trained
// with.
func (b *Bundle) Apply(cfg config.Config) config.Config {
	cfg.TargetCol = b.TargetCol
	cfg.WindowSize = b.WindowSize
	cfg.StepAhead = b.StepAhead
	cfg.TrainMonths = b.TrainMonths
	cfg.ValidMonths = b.ValidMonths
	cfg.Resolution = b.Resolution
	cfg.NChannels = b.Model.InputSize
	cfg.HiddenSize = b.Model.HiddenSize
	cfg.NumLayers = b.Model.NumLayers
	cfg.Dropout = b.Model.Dropout
	return cfg
}

// Encode writes b as gob.
func Encode(w io.Writer, b *Bundle) error {
	return gob.NewEncoder(w).Encode(b)
}

// Decode reads a gob bundle and checks its version.
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := gob.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("%w: bundle=%d expected=%d", ErrVersion, b.Version, Version)
	}
	return &b, nil
}

// Save writes b to path atomically: the bundle is encoded into a temporary
// file in the same directory, which is then renamed over path.
func Save(path string, b *Bundle) error {
	if path == "" {
		return errors.New("empty bundle path")
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp bundle file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := Encode(tmp, b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		klog.InfoS("Warning: sync temp bundle file", "path", tmpName, "err", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp bundle file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp bundle to target: %w", err)
	}
	klog.V(1).InfoS("Saved bundle", "path", path, "params", len(b.Params))
	return nil
}

// Load reads a bundle from path.
func Load(path string) (*Bundle, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle %s: %w", path, err)
	}
	defer fh.Close()
	b, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}
