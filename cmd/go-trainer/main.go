package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-trainer",
	Short: "Epoch-loop training engine demo",
	Long: `go-trainer drives the training engine over a built-in toy task.

The train command runs the full epoch loop: gradient accumulation with
loss scaling, plateau learning rate scheduling, best-checkpoint saving,
early stopping, and the standard, complementary, generative and
alternate train types. The history command pretty-prints the per-epoch
record file a run leaves behind.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
