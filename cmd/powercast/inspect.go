package main

import (
	"fmt"
	"io"

	"github.com/Noofbiz/powercast/datasets"
	"github.com/Noofbiz/powercast/pipeline"
	"github.com/spf13/cobra"
)

func newInspectCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the series, its splits and the shape of one training batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := o.resolveConfig(cmd)
			if err != nil || done {
				return err
			}
			path, series, err := o.loadSeries(cfg)
			if err != nil {
				return err
			}
			prep, err := pipeline.Prepare(cfg, series)
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), path, series, prep)
		},
	}
}

func inspect(out io.Writer, path string, s *datasets.Series, p *pipeline.Prepared) error {
	fmt.Fprintf(out, "data:       %s\n", path)
	fmt.Fprintf(out, "target:     %s\n", s.Name)
	fmt.Fprintf(out, "rows:       %d (missing %d)\n", s.Len(), s.MissingCount())
	fmt.Fprintf(out, "range:      %s .. %s\n", s.Start().Format("2006-01-02 15:04"), s.End().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "resolution: %s\n", s.Resolution())
	fmt.Fprintf(out, "scaler:     min=%g max=%g degenerate=%t\n", p.Scaler.Min, p.Scaler.Max, p.Scaler.Degenerate)

	for _, name := range []datasets.SplitName{datasets.SplitTrain, datasets.SplitValid, datasets.SplitTest} {
		part := p.Splits.Get(name)
		fmt.Fprintf(out, "%-5s rows=%-7d windows=%-7d %s .. %s\n", name, part.Len(), p.Dataset(name).Len(),
			part.Start().Format("2006-01-02 15:04"), part.End().Format("2006-01-02 15:04"))
	}

	// first training batch as gomlx tensors
	ds := p.Train
	if err := ds.Restart(); err != nil {
		return err
	}
	spec, inputs, labels, err := ds.Yield()
	if err != nil {
		return fmt.Errorf("yield first batch: %w", err)
	}
	fmt.Fprintf(out, "batch %v:  inputs=%v labels=%v\n", spec, inputs[0].Shape().Dimensions, labels[0].Shape().Dimensions)

	in, la, err := ds.Example(0)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "example 0:  window=%v target=%v\n", in, la[0])
	return ds.Restart()
}
