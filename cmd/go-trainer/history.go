package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tsawler/go-trainer/training"
)

var historyCmd = &cobra.Command{
	Use:   "history <record-file>",
	Short: "Print a training record file as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := training.LoadHistory(args[0])
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Println("No records.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)

		// Columns follow the first record; every epoch of a run carries
		// the same keys in the same order.
		keys := history[0].Keys()
		for i, key := range keys {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, key)
		}
		fmt.Fprintln(w)

		for _, rec := range history {
			for i, key := range keys {
				if i > 0 {
					fmt.Fprint(w, "\t")
				}
				fmt.Fprint(w, formatCell(rec, key))
			}
			fmt.Fprintln(w)
		}

		return w.Flush()
	},
}

// formatCell renders one record value: whole numbers plainly, other
// numbers rounded, everything else as it came in.
func formatCell(rec *training.Record, key string) string {
	value, ok := rec.Get(key)
	if !ok {
		return "-"
	}
	f, ok := rec.Float(key)
	if !ok {
		return fmt.Sprintf("%v", value)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e12 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.4f", f)
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
