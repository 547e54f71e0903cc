package training

// StandardStrategy trains one model on labeled batches: the source field
// becomes the inputs, the target field the labels, one loss per batch.
type StandardStrategy struct {
	cfg     *Config
	tracked []*TrackedModel

	trainLoader DataLoader
	validLoader DataLoader
}

// NewStandardStrategy builds the single-model supervised strategy
func NewStandardStrategy(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader) (*StandardStrategy, error) {
	tm, err := newTrackedModel(cfg, "model", collab.Model, cfg.Ckpt, true)
	if err != nil {
		return nil, err
	}

	return &StandardStrategy{
		cfg:         cfg,
		tracked:     []*TrackedModel{tm},
		trainLoader: trainLoader,
		validLoader: validLoader,
	}, nil
}

func (s *StandardStrategy) Name() string {
	return TrainStandard
}

// project maps the configured source and target fields onto the canonical
// labeled-batch layout
func (s *StandardStrategy) project(batch Batch) (Batch, error) {
	src, err := batch.Field(s.cfg.Src)
	if err != nil {
		return nil, err
	}
	trg, err := batch.Field(s.cfg.Trg)
	if err != nil {
		return nil, err
	}
	return Batch{FieldInputs: src, FieldLabels: trg}, nil
}

func (s *StandardStrategy) TrainEpoch() ([]float64, error) {
	loss, err := runPass(s.tracked[0], s.trainLoader, s.project, true, s.cfg.PrintEvery, "train")
	if err != nil {
		return nil, err
	}
	return []float64{loss}, nil
}

func (s *StandardStrategy) ValidEpoch() ([]float64, error) {
	loss, err := runPass(s.tracked[0], s.validLoader, s.project, false, s.cfg.PrintEvery, "valid")
	if err != nil {
		return nil, err
	}
	return []float64{loss}, nil
}

func (s *StandardStrategy) Tracked() []*TrackedModel {
	return s.tracked
}

func (s *StandardStrategy) Primary() *TrackedModel {
	return s.tracked[0]
}
