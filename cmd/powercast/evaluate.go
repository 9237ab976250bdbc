package main

import (
	"fmt"
	"math"
	"time"

	"github.com/Noofbiz/powercast/bundle"
	"github.com/Noofbiz/powercast/datasets"
	"github.com/Noofbiz/powercast/pipeline"
	"github.com/Noofbiz/powercast/runlog"
	"github.com/Noofbiz/powercast/train"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newEvaluateCommand(o *options) *cobra.Command {
	var (
		modelPath string
		splits    []string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a saved model bundle on one or more splits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := o.resolveConfig(cmd)
			if err != nil || done {
				return err
			}
			started := time.Now()
			out := cmd.OutOrStdout()

			if modelPath == "" {
				modelPath = cfg.ModelPath()
			}
			b, err := bundle.Load(modelPath)
			if err != nil {
				return err
			}
			cfg = b.Apply(cfg)
			model, err := b.BuildModel()
			if err != nil {
				return err
			}

			dataPath, series, err := o.loadSeries(cfg)
			if err != nil {
				return err
			}
			prep, err := pipeline.PrepareWithScaler(cfg, series, b.Scaler)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metrics := train.NewMetrics(reg)
			rec := &runlog.Record{
				StartedAt:  started,
				Command:    "evaluate",
				DataPath:   dataPath,
				TargetCol:  cfg.TargetCol,
				ModelPath:  modelPath,
				WindowSize: cfg.WindowSize,
				StepAhead:  cfg.StepAhead,
				ValidLoss:  math.NaN(),
				TestLoss:   math.NaN(),
				TestRMSE:   math.NaN(),
				TestMAE:    math.NaN(),
			}

			forecasts := make(map[datasets.SplitName]*pipeline.Forecast)
			for _, s := range splits {
				name := datasets.SplitName(s)
				ds := prep.Dataset(name)
				if ds == nil {
					return fmt.Errorf("unknown split %q, expected train, valid or test", s)
				}
				ev, err := pipeline.EvaluateSplit(model, ds, cfg.BatchSize)
				if err != nil {
					return fmt.Errorf("evaluate %s split: %w", name, err)
				}
				metrics.ObserveEval(s, ev)
				f, err := pipeline.Predict(model, ds, prep.Scaler, cfg.BatchSize)
				if err != nil {
					return fmt.Errorf("predict %s split: %w", name, err)
				}
				forecasts[name] = f

				fmt.Fprintf(out, "%-5s loss (scaled MSE): %s  batches=%d skipped=%d\n", name, formatLoss(ev.Loss), ev.Batches, ev.Skipped)
				printScores(out, name, cfg.TargetCol, f.Scores)

				rec.SkippedEval += ev.Skipped
				switch name {
				case datasets.SplitValid:
					rec.ValidLoss = ev.Loss
				case datasets.SplitTest:
					rec.TestLoss = ev.Loss
					rec.TestRMSE = f.Scores.RMSE
					rec.TestMAE = f.Scores.MAE
				}
			}

			if !o.noPlots {
				writePlots(cfg, forecasts)
			}
			if o.metricsFile != "" {
				if err := prometheus.WriteToTextfile(o.metricsFile, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			rec.Duration = time.Since(started)
			recordRun(o, cfg, rec)
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model bundle to evaluate (default: <save_dir>/<model_file>)")
	cmd.Flags().StringSliceVar(&splits, "split", []string{"valid", "test"}, "splits to evaluate")
	return cmd
}
