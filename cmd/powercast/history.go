package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Noofbiz/powercast/runlog"
	"github.com/spf13/cobra"
)

func newHistoryCommand(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent training and evaluation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, done, err := o.resolveConfig(cmd)
			if err != nil || done {
				return err
			}
			store, err := runlog.Open(o.runLog(cfg))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tCOMMAND\tWINDOW\tEPOCHS\tVALID\tTEST\tTEST RMSE\tSKIPPED\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%d\t%.5g\t%.5g\t%.4g\t%d/%d\t%s\n",
					r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Command,
					r.WindowSize, r.StepAhead, r.Epochs,
					r.ValidLoss, r.TestLoss, r.TestRMSE,
					r.SkippedTrain, r.SkippedEval, r.Duration.Round(1e6))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
