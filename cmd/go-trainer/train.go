package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsawler/go-trainer/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the demo models on the mirror task",
	Long: `Trains a unigram language model, and for the adversarial train types a
logistic discriminator alongside it, on a synthetic mirror task where the
target sequence is the source sequence reversed. The task is trivial on
purpose; the run exercises the full engine around it.`,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := training.DefaultConfig()

	cfg.Task, _ = cmd.Flags().GetString("task")
	cfg.NEpochs, _ = cmd.Flags().GetInt("epochs")
	cfg.LR, _ = cmd.Flags().GetFloat64("lr")
	cfg.VocabSize, _ = cmd.Flags().GetInt("vocab-size")
	cfg.ItersToAccumulate, _ = cmd.Flags().GetInt("accumulate")
	cfg.Clip, _ = cmd.Flags().GetFloat64("clip")
	cfg.EarlyStop, _ = cmd.Flags().GetBool("early-stop")
	cfg.Patience, _ = cmd.Flags().GetInt("patience")
	cfg.Ckpt, _ = cmd.Flags().GetString("ckpt")
	cfg.CkptFormat, _ = cmd.Flags().GetString("ckpt-format")
	cfg.TrainType, _ = cmd.Flags().GetString("train-type")
	cfg.PrintEvery, _ = cmd.Flags().GetInt("print-every")
	cfg.LabelSmoothing, _ = cmd.Flags().GetFloat64("label-smoothing")

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	batches, _ := cmd.Flags().GetInt("batches")
	seqLen, _ := cmd.Flags().GetInt("seq-len")
	seed, _ := cmd.Flags().GetInt64("seed")
	resume, _ := cmd.Flags().GetBool("resume")

	rng := rand.New(rand.NewSource(seed))

	trainLoader, err := mirrorLoader(rng, batches, batchSize, seqLen, cfg.VocabSize, cfg.Src, cfg.Trg, true)
	if err != nil {
		return err
	}
	validBatches := batches / 5
	if validBatches < 1 {
		validBatches = 1
	}
	validLoader, err := mirrorLoader(rng, validBatches, batchSize, seqLen, cfg.VocabSize, cfg.Src, cfg.Trg, false)
	if err != nil {
		return err
	}

	collab := training.Collaborators{Model: newDemoLM(cfg.VocabSize, rng)}
	switch cfg.TrainType {
	case training.TrainGenerative, training.TrainAlternate:
		collab.Discriminator = newDemoDiscriminator(seqLen, cfg.VocabSize, rng)
		collab.Tokenizer = demoTokenizer{}
	}

	trainer, err := training.NewTrainer(&cfg, collab, trainLoader, validLoader)
	if err != nil {
		return err
	}

	if resume {
		if err := restoreCheckpoints(trainer); err != nil {
			return err
		}
	}

	if err := trainer.Train(); err != nil {
		return err
	}

	fmt.Printf("Records written to %s\n", cfg.RecordPath())
	return nil
}

// restoreCheckpoints reloads weights and optimizer state for every tracked
// model whose checkpoint file exists. Missing files are not an error, so a
// resumed adversarial run can pick up whichever side was saved.
func restoreCheckpoints(trainer *training.Trainer) error {
	for _, tm := range trainer.Tracked() {
		if _, err := os.Stat(tm.Checkpoint.Path()); err != nil {
			continue
		}
		ckpt, err := tm.Checkpoint.Load()
		if err != nil {
			return fmt.Errorf("loading %s checkpoint: %v", tm.Name, err)
		}
		if err := tm.Model.LoadStateDict(ckpt.Weights); err != nil {
			return fmt.Errorf("restoring %s weights: %v", tm.Name, err)
		}
		if ckpt.OptimizerState != nil {
			if err := tm.Optimizer.LoadState(ckpt.OptimizerState); err != nil {
				return fmt.Errorf("restoring %s optimizer state: %v", tm.Name, err)
			}
		}
		fmt.Printf("Resumed %s from %s (epoch %d)\n", tm.Name, tm.Checkpoint.Path(), ckpt.Epoch)
	}
	return nil
}

func init() {
	trainCmd.Flags().String("task", "mirror", "task label recorded in checkpoint metadata")
	trainCmd.Flags().Int("epochs", 10, "number of epochs to run")
	trainCmd.Flags().Float64("lr", 0.05, "initial learning rate")
	trainCmd.Flags().Int("batch-size", 16, "rows per batch")
	trainCmd.Flags().Int("batches", 50, "training batches per epoch")
	trainCmd.Flags().Int("vocab-size", 32, "token vocabulary size")
	trainCmd.Flags().Int("seq-len", 8, "tokens per sequence")
	trainCmd.Flags().Int("accumulate", 2, "batches per optimizer step")
	trainCmd.Flags().Float64("clip", 1.0, "gradient norm ceiling, 0 disables clipping")
	trainCmd.Flags().String("train-type", training.TrainStandard, "standard, generative, alternate or complementary")
	trainCmd.Flags().String("ckpt", "mirror.pt", "checkpoint path; record and discriminator paths derive from it")
	trainCmd.Flags().String("ckpt-format", training.CkptFormatJSON, "checkpoint format, json or binary")
	trainCmd.Flags().Bool("early-stop", false, "stop when validation loss keeps rising")
	trainCmd.Flags().Int("patience", 5, "epochs of rising validation loss tolerated")
	trainCmd.Flags().Int("print-every", 10, "batch progress cadence, 0 disables the bar")
	trainCmd.Flags().Float64("label-smoothing", 0.1, "symmetric smoothing for adversarial labels")
	trainCmd.Flags().Int64("seed", 42, "seed for data generation and weight init")
	trainCmd.Flags().Bool("resume", false, "reload existing checkpoints before training")

	rootCmd.AddCommand(trainCmd)
}
