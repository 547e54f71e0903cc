package training

// ComplementaryStrategy trains one model on both directions of a pair task
// at once. Each batch is widened to its own mirror image: source rows
// labeled with target rows, stacked on target rows labeled with source
// rows, so one backward pass carries both objectives.
type ComplementaryStrategy struct {
	cfg     *Config
	tracked []*TrackedModel

	trainLoader DataLoader
	validLoader DataLoader
}

// NewComplementaryStrategy builds the bidirectional single-model strategy
func NewComplementaryStrategy(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader) (*ComplementaryStrategy, error) {
	tm, err := newTrackedModel(cfg, "model", collab.Model, cfg.Ckpt, true)
	if err != nil {
		return nil, err
	}

	return &ComplementaryStrategy{
		cfg:         cfg,
		tracked:     []*TrackedModel{tm},
		trainLoader: trainLoader,
		validLoader: validLoader,
	}, nil
}

func (s *ComplementaryStrategy) Name() string {
	return TrainComplementary
}

// project widens the batch with its swapped counterpart
func (s *ComplementaryStrategy) project(batch Batch) (Batch, error) {
	src, err := batch.Field(s.cfg.Src)
	if err != nil {
		return nil, err
	}
	trg, err := batch.Field(s.cfg.Trg)
	if err != nil {
		return nil, err
	}
	return Batch{
		FieldInputs: ConcatRows(src, trg),
		FieldLabels: ConcatRows(trg, src),
	}, nil
}

func (s *ComplementaryStrategy) TrainEpoch() ([]float64, error) {
	loss, err := runPass(s.tracked[0], s.trainLoader, s.project, true, s.cfg.PrintEvery, "train")
	if err != nil {
		return nil, err
	}
	return []float64{loss}, nil
}

func (s *ComplementaryStrategy) ValidEpoch() ([]float64, error) {
	loss, err := runPass(s.tracked[0], s.validLoader, s.project, false, s.cfg.PrintEvery, "valid")
	if err != nil {
		return nil, err
	}
	return []float64{loss}, nil
}

func (s *ComplementaryStrategy) Tracked() []*TrackedModel {
	return s.tracked
}

func (s *ComplementaryStrategy) Primary() *TrackedModel {
	return s.tracked[0]
}
