package main

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/Noofbiz/powercast/bundle"
	"github.com/Noofbiz/powercast/config"
	"github.com/Noofbiz/powercast/datasets"
	"github.com/Noofbiz/powercast/pipeline"
	"github.com/Noofbiz/powercast/plotting"
	"github.com/Noofbiz/powercast/runlog"
	"github.com/Noofbiz/powercast/train"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func newTrainCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train a model, evaluate it on the valid and test splits and save the bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := o.resolveConfig(cmd)
			if err != nil || done {
				return err
			}
			return runTrain(cmd.OutOrStdout(), o, cfg)
		},
	}
}

func runTrain(out io.Writer, o *options, cfg config.Config) error {
	started := time.Now()
	dataPath, series, err := o.loadSeries(cfg)
	if err != nil {
		return err
	}
	prep, err := pipeline.Prepare(cfg, series)
	if err != nil {
		return err
	}
	klog.InfoS("Built windows",
		"train", prep.Train.Len(),
		"valid", prep.Valid.Len(),
		"test", prep.Test.Len(),
		"windowSize", cfg.WindowSize,
		"stepAhead", cfg.StepAhead)

	reg := prometheus.NewRegistry()
	metrics := train.NewMetrics(reg)

	model, res, err := pipeline.Train(cfg, prep, metrics)
	if err != nil {
		return err
	}
	testEval, err := pipeline.EvaluateSplit(model, prep.Test, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("evaluate test split: %w", err)
	}
	metrics.ObserveEval(string(datasets.SplitTest), testEval)

	modelPath := cfg.ModelPath()
	if err := bundle.Save(modelPath, bundle.New(model, prep.Scaler, cfg, res.ValidLoss)); err != nil {
		return err
	}

	forecasts := make(map[datasets.SplitName]*pipeline.Forecast)
	for _, name := range []datasets.SplitName{datasets.SplitValid, datasets.SplitTest} {
		f, err := pipeline.Predict(model, prep.Dataset(name), prep.Scaler, cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("predict %s split: %w", name, err)
		}
		forecasts[name] = f
	}

	if !o.noPlots {
		writePlots(cfg, forecasts)
		lossPath := filepath.Join(cfg.PlotDir, "training_loss.png")
		if err := plotting.Loss(lossPath, res.EpochLosses, res.ValidLoss); err != nil {
			klog.ErrorS(err, "Failed to write loss plot", "path", lossPath)
		}
	}

	if o.metricsFile != "" {
		if err := prometheus.WriteToTextfile(o.metricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	test := forecasts[datasets.SplitTest].Scores
	recordRun(o, cfg, &runlog.Record{
		StartedAt:    started,
		Command:      "train",
		DataPath:     dataPath,
		TargetCol:    cfg.TargetCol,
		ModelPath:    modelPath,
		WindowSize:   cfg.WindowSize,
		StepAhead:    cfg.StepAhead,
		Epochs:       cfg.NumEpochs,
		ValidLoss:    res.ValidLoss,
		TestLoss:     testEval.Loss,
		TestRMSE:     test.RMSE,
		TestMAE:      test.MAE,
		SkippedTrain: res.SkippedTrain,
		SkippedEval:  res.SkippedEval + testEval.Skipped,
		Duration:     time.Since(started),
	})

	fmt.Fprintf(out, "model saved to %s\n", modelPath)
	fmt.Fprintf(out, "steps: %d  skipped batches: train=%d eval=%d\n", res.Steps, res.SkippedTrain, res.SkippedEval+testEval.Skipped)
	fmt.Fprintf(out, "valid loss (scaled MSE): %s\n", formatLoss(res.ValidLoss))
	fmt.Fprintf(out, "test loss (scaled MSE):  %s\n", formatLoss(testEval.Loss))
	for _, name := range []datasets.SplitName{datasets.SplitValid, datasets.SplitTest} {
		printScores(out, name, cfg.TargetCol, forecasts[name].Scores)
	}
	return nil
}

// writePlots draws one true-vs-predicted chart per forecast. Plot failures
// are logged, not returned: the model is already saved at this point.
func writePlots(cfg config.Config, forecasts map[datasets.SplitName]*pipeline.Forecast) {
	for name, f := range forecasts {
		path := filepath.Join(cfg.PlotDir, fmt.Sprintf("%s_predictions.png", name))
		title := fmt.Sprintf("%s Set: True vs. Predicted", capitalize(string(name)))
		if err := plotting.Predictions(path, title, cfg.TargetCol, f.Actual, f.Predicted); err != nil {
			klog.ErrorS(err, "Failed to write prediction plot", "split", name, "path", path)
			continue
		}
		klog.InfoS("Wrote plot", "split", name, "path", path)
	}
}

func recordRun(o *options, cfg config.Config, rec *runlog.Record) {
	if text, err := cfg.YAML(); err == nil {
		rec.Config = text
	}
	path := o.runLog(cfg)
	store, err := runlog.Open(path)
	if err != nil {
		klog.ErrorS(err, "Failed to open run log", "path", path)
		return
	}
	defer store.Close()
	if _, err := store.Insert(rec); err != nil {
		klog.ErrorS(err, "Failed to record run", "path", path)
	}
}

func printScores(out io.Writer, split datasets.SplitName, unit string, s pipeline.Scores) {
	if s.N == 0 {
		fmt.Fprintf(out, "%-5s: no finite predictions\n", split)
		return
	}
	fmt.Fprintf(out, "%-5s: n=%d RMSE=%.4f MAE=%.4f bias=%+.4f (%s)\n", split, s.N, s.RMSE, s.MAE, s.Bias, unit)
}

func formatLoss(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf (no usable batches)"
	}
	return fmt.Sprintf("%.6f", v)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
