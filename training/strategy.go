package training

import (
	"fmt"

	"github.com/tsawler/go-trainer/checkpoints"
	"github.com/tsawler/go-trainer/optimizer"
)

// TrackedModel binds one model to its optimizer, its accumulation window
// and its checkpoint bookkeeping. Each tracked model owns its own loss
// scaler through the accumulator; scalers are never shared across models.
type TrackedModel struct {
	Name        string
	Model       Model
	Optimizer   optimizer.Optimizer
	Accumulator *Accumulator
	Checkpoint  *checkpoints.Manager
	Perplexity  bool // Whether this model's losses translate to perplexity
}

// Collaborators holds the externally built pieces a run trains. Model is
// always required; the discriminator and tokenizer only for the
// adversarial train types.
type Collaborators struct {
	Model         Model
	Discriminator Model
	Tokenizer     Tokenizer
}

// Strategy runs one full training or validation pass per call and exposes
// the models it coordinates. Loss slices line up with Tracked().
type Strategy interface {
	// Name returns the strategy name for banners and metadata
	Name() string

	// TrainEpoch makes one pass over the training loader and returns the
	// average loss per tracked model
	TrainEpoch() ([]float64, error)

	// ValidEpoch makes one pass over the validation loader and returns the
	// average loss per tracked model
	ValidEpoch() ([]float64, error)

	// Tracked returns the models in recording order
	Tracked() []*TrackedModel

	// Primary returns the model whose validation loss drives LR scheduling
	// and early stopping
	Primary() *TrackedModel
}

// NewStrategy builds the strategy selected by cfg.TrainType
func NewStrategy(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader) (Strategy, error) {
	if collab.Model == nil {
		return nil, &ConfigError{Field: "model", Reason: "a model is required"}
	}
	if trainLoader == nil || validLoader == nil {
		return nil, &ConfigError{Field: "loaders", Reason: "train and valid loaders are required"}
	}
	if trainLoader.Len() == 0 {
		return nil, &ConfigError{Field: "loaders", Reason: "train loader is empty"}
	}
	if validLoader.Len() == 0 {
		return nil, &ConfigError{Field: "loaders", Reason: "valid loader is empty"}
	}

	switch cfg.TrainType {
	case TrainStandard:
		return NewStandardStrategy(cfg, collab, trainLoader, validLoader)
	case TrainComplementary:
		return NewComplementaryStrategy(cfg, collab, trainLoader, validLoader)
	case TrainGenerative:
		return NewGenerativeStrategy(cfg, collab, trainLoader, validLoader)
	case TrainAlternate:
		return NewAlternateStrategy(cfg, collab, trainLoader, validLoader)
	default:
		return nil, &ConfigError{Field: "train_type", Reason: fmt.Sprintf("unknown train type %q", cfg.TrainType)}
	}
}

// newTrackedModel wires the per-model training machinery: an AdamW
// optimizer over the model's parameters, an accumulator owning a fresh
// loss scaler, and a best-checkpoint manager at the given path.
func newTrackedModel(cfg *Config, name string, model Model, ckptPath string, perplexity bool) (*TrackedModel, error) {
	adamwConfig := optimizer.DefaultAdamWConfig()
	adamwConfig.LearningRate = cfg.LR

	opt, err := optimizer.NewAdamW(model.Parameters(), adamwConfig)
	if err != nil {
		return nil, err
	}

	accumulator, err := NewAccumulator(opt, cfg.ItersToAccumulate, cfg.Clip)
	if err != nil {
		return nil, err
	}

	return &TrackedModel{
		Name:        name,
		Model:       model,
		Optimizer:   opt,
		Accumulator: accumulator,
		Checkpoint:  checkpoints.NewManager(ckptPath, cfg.checkpointFormat()),
		Perplexity:  perplexity,
	}, nil
}

// runPass makes one pass of loader through a single tracked model. Each
// batch goes through project before the model sees it. In training mode
// batches also feed the accumulator; in eval mode the pass is forward-only.
func runPass(tm *TrackedModel, loader DataLoader, project func(Batch) (Batch, error), train bool, printEvery int, phase string) (float64, error) {
	if train {
		tm.Model.Train()
		tm.Accumulator.Reset()
	} else {
		tm.Model.Eval()
	}

	count := loader.Len()
	var bar *ProgressBar
	if printEvery > 0 {
		bar = NewProgressBar(phase, count)
	}

	total := 0.0
	idx := 0
	for batch := range loader.Iterator() {
		projected, err := project(batch)
		if err != nil {
			return 0, err
		}

		loss, err := tm.Model.Forward(projected)
		if err != nil {
			return 0, fmt.Errorf("forward pass failed: %v", err)
		}

		if train {
			if err := tm.Accumulator.Backward(tm.Model, loss); err != nil {
				return 0, err
			}
		}

		total += finiteOrZero(loss)
		idx++

		if bar != nil && (idx%printEvery == 0 || idx == count) {
			bar.Update(idx, map[string]float64{"loss": total / float64(idx)})
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if idx == 0 {
		return 0, fmt.Errorf("%s loader produced no batches", phase)
	}

	return total / float64(count), nil
}
