package main

import (
	"fmt"
	"path/filepath"

	"github.com/Noofbiz/powercast/config"
	"github.com/Noofbiz/powercast/datasets"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// options are the flags shared by every subcommand. Config flags only
// override the file/defaults when set explicitly.
type options struct {
	configPath  string
	printConfig bool
	dataPath    string
	runLogPath  string
	metricsFile string
	noPlots     bool

	flags config.Config
}

func (o *options) bindFlags(fs *pflag.FlagSet) {
	d := config.Defaults()

	fs.StringVar(&o.configPath, "config", "", "path to a YAML configuration file")
	fs.BoolVar(&o.printConfig, "print-config", false, "print the effective configuration and exit")
	fs.StringVar(&o.dataPath, "data", "", "CSV file or directory holding one (default: data_file, else data_dir)")
	fs.StringVar(&o.runLogPath, "runlog", "", "SQLite run history (default: <save_dir>/runs.db)")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "if set, write Prometheus metrics in text format to this file")
	fs.BoolVar(&o.noPlots, "no-plots", false, "skip writing plots")

	fs.StringVar(&o.flags.DataDir, "data-dir", d.DataDir, "directory searched for the first *.csv")
	fs.StringVar(&o.flags.SaveDir, "save-dir", d.SaveDir, "directory for the model bundle")
	fs.StringVar(&o.flags.ModelFile, "model-file", d.ModelFile, "model bundle file name inside save-dir")
	fs.StringVar(&o.flags.PlotDir, "plot-dir", d.PlotDir, "directory for plots")
	fs.IntVar(&o.flags.TrainMonths, "train-months", d.TrainMonths, "calendar months in the training split")
	fs.IntVar(&o.flags.ValidMonths, "valid-months", d.ValidMonths, "calendar months in the validation split")
	fs.DurationVar(&o.flags.Resolution, "resolution", d.Resolution, "native sampling interval (0 = infer)")
	fs.IntVar(&o.flags.WindowSize, "window-size", d.WindowSize, "past samples per input window")
	fs.IntVar(&o.flags.StepAhead, "step-ahead", d.StepAhead, "forecast horizon in samples")
	fs.StringVar(&o.flags.TargetCol, "target-col", d.TargetCol, "name of the column to forecast")
	fs.IntVar(&o.flags.HiddenSize, "hidden-size", d.HiddenSize, "LSTM hidden units")
	fs.IntVar(&o.flags.NumLayers, "num-layers", d.NumLayers, "stacked LSTM layers")
	fs.Float64Var(&o.flags.Dropout, "dropout", d.Dropout, "dropout between LSTM layers (training only)")
	fs.Float64Var(&o.flags.LearningRate, "learning-rate", d.LearningRate, "optimizer learning rate")
	fs.IntVar(&o.flags.BatchSize, "batch-size", d.BatchSize, "mini-batch size")
	fs.IntVar(&o.flags.NumEpochs, "epochs", d.NumEpochs, "training epochs")
	fs.Int64Var(&o.flags.RandomSeed, "seed", d.RandomSeed, "seed for initialization and shuffling")
	fs.StringVar(&o.flags.Optimizer, "optimizer", d.Optimizer, "optimizer: adam or sgd")
	fs.Float64Var(&o.flags.ClipNorm, "clip-norm", d.ClipNorm, "global gradient norm clip (0 = off)")
	fs.BoolVar(&o.flags.Shuffle, "shuffle", d.Shuffle, "shuffle training batches every epoch")
}

// resolveConfig returns the effective configuration: defaults, then the
// YAML file, then flags explicitly set on cmd. done is true when
// --print-config handled the command.
func (o *options) resolveConfig(cmd *cobra.Command) (cfg config.Config, done bool, err error) {
	cfg = config.Defaults()
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath, nil)
		if err != nil {
			return cfg, false, err
		}
	}
	o.applyOverrides(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, false, fmt.Errorf("invalid configuration: %w", err)
	}

	if o.printConfig {
		text, err := cfg.YAML()
		if err != nil {
			return cfg, false, err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return cfg, true, nil
	}
	return cfg, false, nil
}

func (o *options) applyOverrides(fs *pflag.FlagSet, cfg *config.Config) {
	f := o.flags
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("data-dir", func() { cfg.DataDir = f.DataDir })
	set("save-dir", func() { cfg.SaveDir = f.SaveDir })
	set("model-file", func() { cfg.ModelFile = f.ModelFile })
	set("plot-dir", func() { cfg.PlotDir = f.PlotDir })
	set("train-months", func() { cfg.TrainMonths = f.TrainMonths })
	set("valid-months", func() { cfg.ValidMonths = f.ValidMonths })
	set("resolution", func() { cfg.Resolution = f.Resolution })
	set("window-size", func() { cfg.WindowSize = f.WindowSize })
	set("step-ahead", func() { cfg.StepAhead = f.StepAhead })
	set("target-col", func() { cfg.TargetCol = f.TargetCol })
	set("hidden-size", func() { cfg.HiddenSize = f.HiddenSize })
	set("num-layers", func() { cfg.NumLayers = f.NumLayers })
	set("dropout", func() { cfg.Dropout = f.Dropout })
	set("learning-rate", func() { cfg.LearningRate = f.LearningRate })
	set("batch-size", func() { cfg.BatchSize = f.BatchSize })
	set("epochs", func() { cfg.NumEpochs = f.NumEpochs })
	set("seed", func() { cfg.RandomSeed = f.RandomSeed })
	set("optimizer", func() { cfg.Optimizer = f.Optimizer })
	set("clip-norm", func() { cfg.ClipNorm = f.ClipNorm })
	set("shuffle", func() { cfg.Shuffle = f.Shuffle })
}

// loadSeries resolves the data path and loads the target column.
func (o *options) loadSeries(cfg config.Config) (string, *datasets.Series, error) {
	path := o.dataPath
	if path == "" {
		path = cfg.DataFile
	}
	if path == "" {
		path = cfg.DataDir
	}
	resolved, err := datasets.ResolveCSV(path)
	if err != nil {
		return "", nil, fmt.Errorf("locate data: %w", err)
	}
	s, err := datasets.LoadSeriesCSV(resolved, cfg.TargetCol)
	if err != nil {
		return "", nil, err
	}
	klog.InfoS("Loaded series",
		"path", resolved,
		"rows", s.Len(),
		"missing", s.MissingCount(),
		"start", s.Start(),
		"end", s.End(),
		"resolution", s.Resolution())
	return resolved, s, nil
}

func (o *options) runLog(cfg config.Config) string {
	if o.runLogPath != "" {
		return o.runLogPath
	}
	return filepath.Join(cfg.SaveDir, "runs.db")
}
