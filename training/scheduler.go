package training

import (
	"github.com/tsawler/go-trainer/optimizer"
)

// PlateauScheduler reduces the learning rate when the watched metric has
// stopped improving. It owns the learning rate of exactly one optimizer;
// in two-model runs that is the generator's. Lower metric is better.
type PlateauScheduler struct {
	Factor    float64 // Factor by which the learning rate will be reduced
	Patience  int     // Number of epochs with no improvement after which LR will be reduced
	Threshold float64 // Threshold for measuring the new optimum
	MinLR     float64 // Floor the learning rate never drops below

	opt optimizer.Optimizer

	// Internal state for scheduling decisions
	bestMetric  float64
	badEpochs   int
	initialized bool
}

// NewPlateauScheduler creates a plateau-based scheduler attached to opt.
// Out-of-range arguments fall back to the standard defaults.
func NewPlateauScheduler(opt optimizer.Optimizer, factor float64, patience int, threshold float64, minLR float64) *PlateauScheduler {
	if factor <= 0 || factor >= 1 {
		factor = 0.1
	}
	if patience <= 0 {
		patience = 10
	}
	if threshold < 0 {
		threshold = 1e-4
	}
	if minLR < 0 {
		minLR = 0
	}

	return &PlateauScheduler{
		Factor:    factor,
		Patience:  patience,
		Threshold: threshold,
		MinLR:     minLR,
		opt:       opt,
	}
}

// Step consumes one epoch's validation metric. After more than Patience
// consecutive epochs without improvement it multiplies the optimizer's
// learning rate by Factor, at most once per call and never below MinLR.
func (s *PlateauScheduler) Step(metric float64) {
	if !s.initialized {
		s.bestMetric = metric
		s.initialized = true
		return
	}

	if metric < s.bestMetric-s.Threshold {
		s.bestMetric = metric
		s.badEpochs = 0
		return
	}

	s.badEpochs++
	if s.badEpochs > s.Patience {
		lr := s.opt.GetLR() * s.Factor
		if lr < s.MinLR {
			lr = s.MinLR
		}
		s.opt.SetLR(lr)
		s.badEpochs = 0
	}
}

// BadEpochs returns the current count of epochs without improvement
func (s *PlateauScheduler) BadEpochs() int {
	return s.badEpochs
}

func (s *PlateauScheduler) GetName() string {
	return "ReduceLROnPlateau"
}
