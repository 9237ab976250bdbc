// Package pipeline wires the datasets, train and lstm packages into the
// end-to-end forecasting flow:
//
//	series -> splits -> scaler (fit on train) -> windows per split -> datasets
//	       -> train -> evaluate -> predictions in original units
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Noofbiz/powercast/config"
	"github.com/Noofbiz/powercast/datasets"
	"k8s.io/klog/v2"
)

// ErrInsufficientData is returned when the training split is too short to
// produce a single window.
var ErrInsufficientData = errors.New("training split produces no windows")

// Prepared holds everything derived from the series before training.
type Prepared struct {
	Splits *datasets.Splits
	Scaler datasets.MinMaxScaler

	Train *datasets.WindowDataset
	Valid *datasets.WindowDataset
	Test  *datasets.WindowDataset

	WindowSize int
	StepAhead  int
}

// Dataset returns the window dataset for a split.
func (p *Prepared) Dataset(name datasets.SplitName) *datasets.WindowDataset {
	switch name {
	case datasets.SplitTrain:
		return p.Train
	case datasets.SplitValid:
		return p.Valid
	case datasets.SplitTest:
		return p.Test
	}
	return nil
}

// Prepare splits s, fits the scaler on the training split only, scales all
// three splits with it and windows each split independently, so no window
// crosses a split boundary. Empty validation or test windows are allowed
// and only logged; an empty training set is ErrInsufficientData.
func Prepare(cfg config.Config, s *datasets.Series) (*Prepared, error) {
	splits, err := split(cfg, s)
	if err != nil {
		return nil, err
	}
	scaler, err := datasets.FitMinMax(splits.Train.Values)
	if err != nil {
		return nil, fmt.Errorf("fit scaler on train split: %w", err)
	}
	klog.InfoS("Fitted scaler on train split", "min", scaler.Min, "max", scaler.Max, "degenerate", scaler.Degenerate)

	p, err := window(cfg, splits, scaler)
	if err != nil {
		return nil, err
	}
	if p.Train.Len() == 0 {
		return nil, fmt.Errorf("%w: %d train rows, window_size=%d step_ahead=%d",
			ErrInsufficientData, splits.Train.Len(), cfg.WindowSize, cfg.StepAhead)
	}
	return p, nil
}

// PrepareWithScaler is Prepare with a previously fitted scaler, as used when
// evaluating a saved model. The training split may be empty of windows.
func PrepareWithScaler(cfg config.Config, s *datasets.Series, scaler datasets.MinMaxScaler) (*Prepared, error) {
	splits, err := split(cfg, s)
	if err != nil {
		return nil, err
	}
	return window(cfg, splits, scaler)
}

func split(cfg config.Config, s *datasets.Series) (*datasets.Splits, error) {
	splits, err := datasets.TimeSplit(s, datasets.SplitConfig{
		TrainMonths: cfg.TrainMonths,
		ValidMonths: cfg.ValidMonths,
		Resolution:  cfg.Resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("split series: %w", err)
	}
	klog.InfoS("Split series",
		"train", splits.Train.Len(),
		"valid", splits.Valid.Len(),
		"test", splits.Test.Len(),
		"trainEnd", splits.TrainEnd,
		"validEnd", splits.ValidEnd)
	return splits, nil
}

func window(cfg config.Config, splits *datasets.Splits, scaler datasets.MinMaxScaler) (*Prepared, error) {
	p := &Prepared{
		Splits:     splits,
		Scaler:     scaler,
		WindowSize: cfg.WindowSize,
		StepAhead:  cfg.StepAhead,
	}
	for _, name := range []datasets.SplitName{datasets.SplitTrain, datasets.SplitValid, datasets.SplitTest} {
		scaled := scaler.Transform(splits.Get(name).Values)
		X, y, err := datasets.BuildWindows(scaled, cfg.WindowSize, cfg.StepAhead)
		if err != nil {
			return nil, fmt.Errorf("%s windows: %w", name, err)
		}
		ds, err := datasets.NewWindowDataset(string(name), X, y, cfg.WindowSize, cfg.NChannels)
		if err != nil {
			return nil, fmt.Errorf("%s dataset: %w", name, err)
		}
		ds.BatchSize = cfg.BatchSize
		if ds.Len() == 0 && name != datasets.SplitTrain {
			klog.InfoS("Warning: split too short for a single window, its loss will be +Inf",
				"split", name, "rows", splits.Get(name).Len())
		}

		switch name {
		case datasets.SplitTrain:
			p.Train = ds
		case datasets.SplitValid:
			p.Valid = ds
		case datasets.SplitTest:
			p.Test = ds
		}
	}
	return p, nil
}
