package runlog

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "db", "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := &Record{
		StartedAt:    started,
		Command:      "train",
		DataPath:     "data/scada.csv",
		TargetCol:    "Power (kW)",
		ModelPath:    "saved_models/best_model.gob",
		WindowSize:   18,
		StepAhead:    1,
		Epochs:       10,
		ValidLoss:    0.0042,
		TestLoss:     0.0051,
		TestRMSE:     87.5,
		TestMAE:      51.25,
		SkippedTrain: 3,
		SkippedEval:  1,
		Duration:     1500 * time.Millisecond,
		Config:       "window_size: 18\n",
	}
	id1, err := store.Insert(first)
	require.NoError(t, err)

	second := &Record{
		StartedAt: started.Add(time.Hour),
		Command:   "evaluate",
		ValidLoss: math.NaN(),
		TestLoss:  0.006,
		TestRMSE:  math.NaN(),
		TestMAE:   math.NaN(),
	}
	id2, err := store.Insert(second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	runs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// newest first
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, "evaluate", runs[0].Command)
	assert.True(t, math.IsNaN(runs[0].ValidLoss))
	assert.True(t, math.IsNaN(runs[0].TestRMSE))
	assert.Equal(t, 0.006, runs[0].TestLoss)

	got := runs[1]
	assert.Equal(t, id1, got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, first.DataPath, got.DataPath)
	assert.Equal(t, first.TargetCol, got.TargetCol)
	assert.Equal(t, first.ModelPath, got.ModelPath)
	assert.Equal(t, 18, got.WindowSize)
	assert.Equal(t, 0.0042, got.ValidLoss)
	assert.Equal(t, 87.5, got.TestRMSE)
	assert.Equal(t, 3, got.SkippedTrain)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, first.Config, got.Config)

	limited, err := store.Recent(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Insert(&Record{StartedAt: time.Now(), Command: "train", ValidLoss: 1})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
