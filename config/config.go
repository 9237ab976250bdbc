// Package config holds the static parameters consumed by the forecasting
// pipeline. Nothing in here is computed from data; values come from
// Defaults, an optional YAML file and command line overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Config is the full set of pipeline parameters.
type Config struct {
	// Directories and files
	DataDir   string `yaml:"data_dir"`
	DataFile  string `yaml:"data_file"`
	SaveDir   string `yaml:"save_dir"`
	ModelFile string `yaml:"model_file"`
	PlotDir   string `yaml:"plot_dir"`

	// Splits. Resolution is the native sampling interval; zero means it is
	// inferred from the data.
	TrainMonths int           `yaml:"train_months"`
	ValidMonths int           `yaml:"valid_months"`
	Resolution  time.Duration `yaml:"resolution"`

	// Windows
	WindowSize int    `yaml:"window_size"`
	StepAhead  int    `yaml:"step_ahead"`
	TargetCol  string `yaml:"target_col"`
	NChannels  int    `yaml:"n_channels"`

	// Model
	HiddenSize int     `yaml:"hidden_size"`
	NumLayers  int     `yaml:"num_layers"`
	Dropout    float64 `yaml:"dropout"`

	// Training
	LearningRate float64 `yaml:"learning_rate"`
	BatchSize    int     `yaml:"batch_size"`
	NumEpochs    int     `yaml:"num_epochs"`
	RandomSeed   int64   `yaml:"random_seed"`
	Optimizer    string  `yaml:"optimizer"`
	ClipNorm     float64 `yaml:"clip_norm"`
	Shuffle      bool    `yaml:"shuffle"`
}

// Defaults returns the parameters the pipeline was tuned with.
func Defaults() Config {
	return Config{
		DataDir:   "./data",
		SaveDir:   "./saved_models",
		ModelFile: "best_model.gob",
		PlotDir:   "./plots",

		TrainMonths: 9,
		ValidMonths: 2,

		WindowSize: 18,
		StepAhead:  1,
		TargetCol:  "Power (kW)",
		NChannels:  1,

		HiddenSize: 32,
		NumLayers:  2,

		LearningRate: 0.001,
		BatchSize:    64,
		NumEpochs:    10,
		RandomSeed:   42,
		Optimizer:    "adam",
		Shuffle:      true,
	}
}

// Load reads a YAML file (or raw YAML when raw is non-empty) on top of
// Defaults. Unknown keys are rejected.
func Load(path string, raw []byte) (Config, error) {
	cfg := Defaults()
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config %s: %w", path, err)
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	klog.V(2).InfoS("Loaded configuration",
		"path", path,
		"windowSize", cfg.WindowSize,
		"stepAhead", cfg.StepAhead,
		"targetCol", cfg.TargetCol,
		"epochs", cfg.NumEpochs)
	return cfg, nil
}

// Validate reports every invalid parameter at once.
func (c Config) Validate() error {
	var errs []error
	if c.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("window_size must be >= 1, got %d", c.WindowSize))
	}
	if c.StepAhead < 1 {
		errs = append(errs, fmt.Errorf("step_ahead must be >= 1, got %d", c.StepAhead))
	}
	if strings.TrimSpace(c.TargetCol) == "" {
		errs = append(errs, errors.New("target_col must not be empty"))
	}
	if c.NChannels != 1 {
		errs = append(errs, fmt.Errorf("n_channels must be 1 for a univariate series, got %d", c.NChannels))
	}
	if c.HiddenSize < 1 {
		errs = append(errs, fmt.Errorf("hidden_size must be >= 1, got %d", c.HiddenSize))
	}
	if c.NumLayers < 1 {
		errs = append(errs, fmt.Errorf("num_layers must be >= 1, got %d", c.NumLayers))
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		errs = append(errs, fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout))
	}
	if c.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("learning_rate must be > 0, got %g", c.LearningRate))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize))
	}
	if c.NumEpochs < 1 {
		errs = append(errs, fmt.Errorf("num_epochs must be >= 1, got %d", c.NumEpochs))
	}
	if c.TrainMonths < 1 {
		errs = append(errs, fmt.Errorf("train_months must be >= 1, got %d", c.TrainMonths))
	}
	if c.ValidMonths < 1 {
		errs = append(errs, fmt.Errorf("valid_months must be >= 1, got %d", c.ValidMonths))
	}
	if c.Resolution < 0 {
		errs = append(errs, fmt.Errorf("resolution must not be negative, got %s", c.Resolution))
	}
	if c.ClipNorm < 0 {
		errs = append(errs, fmt.Errorf("clip_norm must not be negative, got %g", c.ClipNorm))
	}
	switch strings.ToLower(c.Optimizer) {
	case "adam", "sgd":
	default:
		errs = append(errs, fmt.Errorf("optimizer must be \"adam\" or \"sgd\", got %q", c.Optimizer))
	}
	return errors.Join(errs...)
}

// ModelPath is where the trained bundle is written.
func (c Config) ModelPath() string {
	return filepath.Join(c.SaveDir, c.ModelFile)
}

// YAML renders the effective configuration.
func (c Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
