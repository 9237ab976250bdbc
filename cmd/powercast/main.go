// Command powercast trains and evaluates an LSTM forecaster for a single
// power series stored in a timestamped CSV.
//
// Usage:
//
//	powercast train    --data ./data --config powercast.yaml
//	powercast evaluate --model ./saved_models/best_model.gob
//	powercast inspect  --data ./data/scada.csv
//	powercast history  -n 20
package main

import (
	"flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		klog.ErrorS(err, "powercast failed")
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func newRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "powercast",
		Short:         "Forecast power output from its own history with a recurrent model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	root.PersistentFlags().AddGoFlagSet(klogFlags)
	o.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newTrainCommand(o),
		newEvaluateCommand(o),
		newInspectCommand(o),
		newHistoryCommand(o),
	)
	return root
}
