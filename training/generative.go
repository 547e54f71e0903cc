package training

import (
	"fmt"
	"math/rand"
)

// GenerativeStrategy trains a generator against a discriminator on one
// epoch cadence. Per batch the generator is optimized on its own
// supervised loss, and the discriminator on telling generated rows from
// ground-truth rows. The two objectives are independent: no discriminator
// feedback flows into the generator's gradients.
type GenerativeStrategy struct {
	cfg       *Config
	generator Generator
	tokenizer Tokenizer

	gen *TrackedModel
	dis *TrackedModel

	trainLoader DataLoader
	validLoader DataLoader
}

// NewGenerativeStrategy builds the adversarial strategy with simultaneous
// per-batch updates of both models
func NewGenerativeStrategy(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader) (*GenerativeStrategy, error) {
	return newAdversarialStrategy(cfg, collab, trainLoader, validLoader, TrainGenerative)
}

func newAdversarialStrategy(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader, trainType string) (*GenerativeStrategy, error) {
	generator, ok := collab.Model.(Generator)
	if !ok {
		return nil, &ConfigError{Field: "model", Reason: trainType + " training requires a model that can generate samples"}
	}
	if collab.Discriminator == nil {
		return nil, &ConfigError{Field: "discriminator", Reason: "required for " + trainType + " training"}
	}
	if collab.Tokenizer == nil {
		return nil, &ConfigError{Field: "tokenizer", Reason: "required for " + trainType + " training"}
	}

	gen, err := newTrackedModel(cfg, "gen", collab.Model, cfg.Ckpt, true)
	if err != nil {
		return nil, err
	}
	dis, err := newTrackedModel(cfg, "dis", collab.Discriminator, cfg.DisCkpt(), false)
	if err != nil {
		return nil, err
	}

	return &GenerativeStrategy{
		cfg:         cfg,
		generator:   generator,
		tokenizer:   collab.Tokenizer,
		gen:         gen,
		dis:         dis,
		trainLoader: trainLoader,
		validLoader: validLoader,
	}, nil
}

func (s *GenerativeStrategy) Name() string {
	return TrainGenerative
}

func (s *GenerativeStrategy) TrainEpoch() ([]float64, error) {
	return s.runEpoch(s.trainLoader, true, func(int) (bool, bool) { return true, true }, "train")
}

func (s *GenerativeStrategy) ValidEpoch() ([]float64, error) {
	return s.runEpoch(s.validLoader, false, nil, "valid")
}

func (s *GenerativeStrategy) Tracked() []*TrackedModel {
	return []*TrackedModel{s.gen, s.dis}
}

func (s *GenerativeStrategy) Primary() *TrackedModel {
	return s.gen
}

// runEpoch makes one pass of loader through both models. In training mode
// updates selects per batch index which accumulators the batch feeds; eval
// passes are forward-only and decode one generated sample as a preview.
func (s *GenerativeStrategy) runEpoch(loader DataLoader, train bool, updates func(idx int) (trainGen, trainDis bool), phase string) ([]float64, error) {
	if train {
		s.gen.Model.Train()
		s.dis.Model.Train()
		s.gen.Accumulator.Reset()
		s.dis.Accumulator.Reset()
	} else {
		s.gen.Model.Eval()
		s.dis.Model.Eval()
	}

	count := loader.Len()
	var bar *ProgressBar
	if s.cfg.PrintEvery > 0 {
		bar = NewProgressBar(phase, count)
	}

	genTotal, disTotal := 0.0, 0.0
	preview := ""
	idx := 0
	for batch := range loader.Iterator() {
		trainGen, trainDis := false, false
		if train {
			trainGen, trainDis = updates(idx)
		}

		genLoss, disLoss, samples, err := s.batchLosses(batch, trainGen, trainDis)
		if err != nil {
			return nil, err
		}

		genTotal += finiteOrZero(genLoss)
		disTotal += finiteOrZero(disLoss)

		if !train && idx == 0 && len(samples) > 0 {
			preview = s.tokenizer.Decode(samples[0])
		}

		idx++
		if bar != nil && (idx%s.cfg.PrintEvery == 0 || idx == count) {
			bar.Update(idx, map[string]float64{
				"gen_loss": genTotal / float64(idx),
				"dis_loss": disTotal / float64(idx),
			})
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if idx == 0 {
		return nil, fmt.Errorf("%s loader produced no batches", phase)
	}
	if preview != "" {
		fmt.Printf("\tSample: %s\n", preview)
	}

	return []float64{genTotal / float64(count), disTotal / float64(count)}, nil
}

// batchLosses computes both models' losses for one batch and feeds the
// selected accumulators. Samples are generated before the generator's own
// forward so the retained backward state is never disturbed.
func (s *GenerativeStrategy) batchLosses(batch Batch, trainGen, trainDis bool) (float64, float64, Matrix, error) {
	src, err := batch.Field(s.cfg.Src)
	if err != nil {
		return 0, 0, nil, err
	}
	trg, err := batch.Field(s.cfg.Trg)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(src) != len(trg) {
		return 0, 0, nil, fmt.Errorf("source and target row counts differ: %d vs %d", len(src), len(trg))
	}
	if len(trg) == 0 || len(trg[0]) == 0 {
		return 0, 0, nil, fmt.Errorf("target field %q has no token rows", s.cfg.Trg)
	}

	samples, err := s.generator.Generate(src, len(trg[0]))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("sample generation failed: %v", err)
	}

	genLoss, err := s.gen.Model.Forward(Batch{FieldInputs: src, FieldLabels: trg})
	if err != nil {
		return 0, 0, nil, fmt.Errorf("generator forward failed: %v", err)
	}
	if trainGen {
		if err := s.gen.Accumulator.Backward(s.gen.Model, genLoss); err != nil {
			return 0, 0, nil, err
		}
	}

	disBatch := composeAdversarialBatch(samples, trg, s.cfg.LabelSmoothing)
	disLoss, err := s.dis.Model.Forward(disBatch)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("discriminator forward failed: %v", err)
	}
	if trainDis {
		if err := s.dis.Accumulator.Backward(s.dis.Model, disLoss); err != nil {
			return 0, 0, nil, err
		}
	}

	return genLoss, disLoss, samples, nil
}

// composeAdversarialBatch stacks generated rows on ground-truth rows,
// shuffles the stack with one random permutation, and labels every row by
// its origin with symmetric smoothing. For b input pairs the discriminator
// sees 2b rows: b generated and b real, in shuffled order.
func composeAdversarialBatch(samples, real Matrix, smoothing float64) Batch {
	b := len(samples)
	combined := ConcatRows(samples, real)
	perm := rand.Perm(len(combined))

	positive := 1.0 - smoothing/2.0
	negative := smoothing / 2.0

	labels := make(Matrix, len(perm))
	for i, p := range perm {
		label := negative
		if p >= b { // row p sits in the ground-truth half of the stack
			label = positive
		}
		labels[i] = []float64{label}
	}

	return Batch{
		FieldInputs: PermuteRows(combined, perm),
		FieldLabels: labels,
	}
}
