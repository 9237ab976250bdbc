package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 18, cfg.WindowSize)
	assert.Equal(t, 1, cfg.StepAhead)
	assert.Equal(t, "Power (kW)", cfg.TargetCol)
	assert.Equal(t, 32, cfg.HiddenSize)
	assert.Equal(t, 2, cfg.NumLayers)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, 9, cfg.TrainMonths)
	assert.Equal(t, 2, cfg.ValidMonths)
}

func TestLoadOverridesDefaults(t *testing.T) {
	raw := []byte(`
window_size: 24
step_ahead: 3
target_col: power
resolution: 10m
optimizer: sgd
`)
	cfg, err := Load("", raw)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.WindowSize)
	assert.Equal(t, 3, cfg.StepAhead)
	assert.Equal(t, "power", cfg.TargetCol)
	assert.Equal(t, 10*time.Minute, cfg.Resolution)
	assert.Equal(t, "sgd", cfg.Optimizer)
	// untouched keys keep their defaults
	assert.Equal(t, 64, cfg.BatchSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powercast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_epochs: 3\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.NumEpochs)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load("", []byte("window: 3\n"))
	assert.Error(t, err)
}

func TestLoadWithoutSource(t *testing.T) {
	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.WindowSize = 0
	cfg.StepAhead = 0
	cfg.BatchSize = -1
	cfg.Optimizer = "rmsprop"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"window_size", "step_ahead", "batch_size", "optimizer"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestModelPath(t *testing.T) {
	cfg := Defaults()
	cfg.SaveDir = "out/models"
	cfg.ModelFile = "m.gob"
	assert.Equal(t, filepath.Join("out", "models", "m.gob"), cfg.ModelPath())
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Resolution = 10 * time.Minute
	out, err := cfg.YAML()
	require.NoError(t, err)

	back, err := Load("", []byte(out))
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
