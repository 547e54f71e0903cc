package training

// AlternateStrategy is adversarial training with per-batch alternation:
// even-indexed batches feed only the generator's accumulator, odd-indexed
// ones only the discriminator's. Both losses are still measured on every
// batch, so epoch averages cover the full loader.
type AlternateStrategy struct {
	*GenerativeStrategy
}

func NewAlternateStrategy(cfg *Config, collab Collaborators, trainLoader, validLoader DataLoader) (*AlternateStrategy, error) {
	base, err := newAdversarialStrategy(cfg, collab, trainLoader, validLoader, TrainAlternate)
	if err != nil {
		return nil, err
	}
	return &AlternateStrategy{GenerativeStrategy: base}, nil
}

func (s *AlternateStrategy) Name() string {
	return TrainAlternate
}

func (s *AlternateStrategy) TrainEpoch() ([]float64, error) {
	return s.runEpoch(s.trainLoader, true, func(idx int) (bool, bool) {
		return idx%2 == 0, idx%2 == 1
	}, "train")
}
