package training

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tsawler/go-trainer/checkpoints"
)

// Trainer drives the epoch loop for a strategy: train pass, valid pass,
// metric recording, LR scheduling, checkpointing and early stopping, in
// that order. One Trainer owns one run; its history is written to the
// record path derived from the checkpoint path when the run ends.
type Trainer struct {
	config    *Config
	strategy  Strategy
	scheduler *PlateauScheduler
	stopper   *EarlyStopping
	history   History
	runID     string
}

// NewTrainer validates the configuration, selects the strategy for
// cfg.TrainType and attaches the plateau scheduler to the primary model's
// optimizer.
func NewTrainer(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strategy, err := NewStrategy(cfg, collab, trainLoader, validLoader)
	if err != nil {
		return nil, err
	}

	scheduler := NewPlateauScheduler(strategy.Primary().Optimizer, 0.1, 10, 1e-4, 0)

	var stopper *EarlyStopping
	if cfg.EarlyStop {
		stopper = NewEarlyStopping(cfg.Patience)
	}

	return &Trainer{
		config:    cfg,
		strategy:  strategy,
		scheduler: scheduler,
		stopper:   stopper,
		history:   History{},
		runID:     uuid.NewString(),
	}, nil
}

// History returns the records collected so far, one per completed epoch.
func (t *Trainer) History() History {
	return t.history
}

// RunID returns the identifier stamped into every checkpoint of this run.
func (t *Trainer) RunID() string {
	return t.runID
}

// Tracked returns the models the strategy coordinates, primary first.
func (t *Trainer) Tracked() []*TrackedModel {
	return t.strategy.Tracked()
}

// Train runs the configured number of epochs and saves the run history.
// When the early stopping countdown expires the loop ends there, and the
// history holds only the epochs that actually ran.
func (t *Trainer) Train() error {
	cfg := t.config

	fmt.Printf("--- %s: %s training on %s ---\n", cfg.Task, cfg.TrainType, cfg.Device)
	fmt.Printf("Run ID: %s\n", t.runID)

	for epoch := 1; epoch <= cfg.NEpochs; epoch++ {
		start := time.Now()

		trainLosses, err := t.strategy.TrainEpoch()
		if err != nil {
			return fmt.Errorf("epoch %d train pass: %v", epoch, err)
		}
		validLosses, err := t.strategy.ValidEpoch()
		if err != nil {
			return fmt.Errorf("epoch %d valid pass: %v", epoch, err)
		}
		elapsed := time.Since(start)

		t.history = append(t.history, t.buildRecord(epoch, trainLosses, validLosses, elapsed))
		t.printEpochSummary(epoch, trainLosses, validLosses, elapsed)

		// Losses are indexed like Tracked(); the primary model sits first.
		primaryValid := validLosses[0]
		t.scheduler.Step(primaryValid)

		if err := t.saveCheckpoints(epoch, validLosses); err != nil {
			return err
		}

		if t.stopper != nil && t.stopper.Update(primaryValid) {
			fmt.Println("--- Training Early Stopped ---")
			break
		}
	}

	return t.history.Save(cfg.RecordPath())
}

func (t *Trainer) buildRecord(epoch int, trainLosses, validLosses []float64, elapsed time.Duration) *Record {
	tracked := t.strategy.Tracked()
	multi := len(tracked) > 1

	rec := NewRecord()
	rec.Set("epoch", epoch)
	for i, tm := range tracked {
		prefix := ""
		if multi {
			prefix = tm.Name + "_"
		}
		rec.Set(prefix+"train_loss", trainLosses[i])
		if tm.Perplexity {
			rec.Set(prefix+"train_ppl", Perplexity(trainLosses[i]))
		}
		rec.Set(prefix+"valid_loss", validLosses[i])
		if tm.Perplexity {
			rec.Set(prefix+"valid_ppl", Perplexity(validLosses[i]))
		}
	}
	for _, tm := range tracked {
		if multi {
			rec.Set(tm.Name+"_lr", tm.Optimizer.GetLR())
		} else {
			rec.Set("learning_rate", tm.Optimizer.GetLR())
		}
	}
	rec.Set("train_time", FormatDuration(elapsed))
	return rec
}

func (t *Trainer) printEpochSummary(epoch int, trainLosses, validLosses []float64, elapsed time.Duration) {
	tracked := t.strategy.Tracked()
	multi := len(tracked) > 1

	fmt.Printf("Epoch %d/%d | Time: %s\n", epoch, t.config.NEpochs, FormatDuration(elapsed))
	for i, tm := range tracked {
		label := ""
		if multi {
			label = strings.ToUpper(tm.Name[:1]) + tm.Name[1:] + " "
		}
		if tm.Perplexity {
			fmt.Printf("  >> %sTrain Loss: %.3f | %sTrain PPL: %.2f\n", label, trainLosses[i], label, Perplexity(trainLosses[i]))
			fmt.Printf("  >> %sValid Loss: %.3f | %sValid PPL: %.2f\n", label, validLosses[i], label, Perplexity(validLosses[i]))
		} else {
			fmt.Printf("  >> %sTrain Loss: %.3f | %sValid Loss: %.3f\n", label, trainLosses[i], label, validLosses[i])
		}
	}
	fmt.Println()
}

// saveCheckpoints offers every tracked model's validation loss to its
// checkpoint manager. Model and optimizer state are only collected when
// the score actually improves on the best seen so far.
func (t *Trainer) saveCheckpoints(epoch int, validLosses []float64) error {
	for i, tm := range t.strategy.Tracked() {
		score := validLosses[i]
		if !tm.Checkpoint.Improved(score) {
			continue
		}

		state, err := tm.Optimizer.GetState()
		if err != nil {
			return fmt.Errorf("collecting %s optimizer state: %v", tm.Name, err)
		}
		ckpt := &checkpoints.Checkpoint{
			Epoch:          epoch,
			Weights:        tm.Model.StateDict(),
			OptimizerState: state,
			Metadata: checkpoints.CheckpointMetadata{
				RunID:       t.runID,
				Description: t.config.Task,
				Tags:        []string{t.config.TrainType, tm.Name},
			},
		}
		if _, err := tm.Checkpoint.Update(ckpt, score); err != nil {
			return fmt.Errorf("saving %s checkpoint: %v", tm.Name, err)
		}
	}
	return nil
}
