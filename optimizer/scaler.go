package optimizer

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
)

// GradScalerConfig holds configuration for dynamic loss scaling
type GradScalerConfig struct {
	InitScale      float64 // Starting scale factor
	GrowthFactor   float64 // Multiplier applied after GrowthInterval clean windows
	BackoffFactor  float64 // Multiplier applied when non-finite values appear
	GrowthInterval int     // Clean windows required before growing the scale
	MinScale       float64 // Floor the scale never drops below
}

// DefaultGradScalerConfig returns the standard loss scaling configuration
func DefaultGradScalerConfig() GradScalerConfig {
	return GradScalerConfig{
		InitScale:      65536.0,
		GrowthFactor:   2.0,
		BackoffFactor:  0.5,
		GrowthInterval: 2000,
		MinScale:       1.0,
	}
}

// GradScaler keeps losses in a numerically safe range by scaling them up
// before backward passes and unscaling gradients before optimizer steps.
// When a window produces non-finite values the step is skipped and the
// scale backs off; after enough clean windows the scale grows again.
type GradScaler struct {
	config    GradScalerConfig
	scale     float64
	goodSteps int
	foundInf  bool
}

// NewGradScaler creates a scaler with the given configuration
func NewGradScaler(config GradScalerConfig) (*GradScaler, error) {
	if config.InitScale <= 0 {
		return nil, fmt.Errorf("initial scale must be positive, got %g", config.InitScale)
	}
	if config.GrowthFactor <= 1 {
		return nil, fmt.Errorf("growth factor must be greater than 1, got %g", config.GrowthFactor)
	}
	if config.BackoffFactor <= 0 || config.BackoffFactor >= 1 {
		return nil, fmt.Errorf("backoff factor must be in (0, 1), got %g", config.BackoffFactor)
	}
	if config.GrowthInterval <= 0 {
		return nil, fmt.Errorf("growth interval must be positive, got %d", config.GrowthInterval)
	}
	if config.MinScale <= 0 {
		return nil, fmt.Errorf("minimum scale must be positive, got %g", config.MinScale)
	}

	return &GradScaler{
		config: config,
		scale:  config.InitScale,
	}, nil
}

// GetScale returns the current scale factor
func (gs *GradScaler) GetScale() float64 {
	return gs.scale
}

// Scale multiplies a loss value by the current scale factor
func (gs *GradScaler) Scale(loss float64) float64 {
	return loss * gs.scale
}

// MarkNonFinite poisons the current window so its optimizer step is skipped
func (gs *GradScaler) MarkNonFinite() {
	gs.foundInf = true
}

// FoundInf reports whether the current window produced non-finite values
func (gs *GradScaler) FoundInf() bool {
	return gs.foundInf
}

// Unscale divides the gradients back down by the scale factor and checks
// them for non-finite values, poisoning the window when any are found.
func (gs *GradScaler) Unscale(params []*Parameter) {
	inv := 1.0 / gs.scale
	for _, param := range params {
		floats.Scale(inv, param.Grad)
		for _, g := range param.Grad {
			if math.IsNaN(g) || math.IsInf(g, 0) {
				gs.foundInf = true
				break
			}
		}
	}
}

// Update recalibrates the scale at the end of an accumulation window and
// clears the poisoned flag for the next one.
func (gs *GradScaler) Update() {
	if gs.foundInf {
		next := gs.scale * gs.config.BackoffFactor
		if next < gs.config.MinScale {
			log.Printf("grad scaler: scale floor reached, clamping at %g", gs.config.MinScale)
			next = gs.config.MinScale
		}
		gs.scale = next
		gs.goodSteps = 0
	} else {
		gs.goodSteps++
		if gs.goodSteps >= gs.config.GrowthInterval {
			gs.scale *= gs.config.GrowthFactor
			gs.goodSteps = 0
		}
	}
	gs.foundInf = false
}
