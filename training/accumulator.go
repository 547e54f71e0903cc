package training

import (
	"fmt"
	"log"
	"math"

	"github.com/tsawler/go-trainer/optimizer"
)

// Accumulator drives gradient accumulation for one model. Backward passes
// pile scaled gradients up across a window of batches; on each window
// boundary the gradients are unscaled, clipped and applied in a single
// optimizer step. A trailing partial window at the end of an epoch is
// dropped rather than stepped, so every step covers a full window and an
// epoch of n batches takes exactly floor(n/window) steps.
type Accumulator struct {
	window int
	clip   float64

	opt    optimizer.Optimizer
	scaler *optimizer.GradScaler

	calls int
	steps int
}

// NewAccumulator creates an accumulator stepping opt once per window batches
func NewAccumulator(opt optimizer.Optimizer, window int, clip float64) (*Accumulator, error) {
	if window < 1 {
		return nil, &ConfigError{
			Field:  "iters_to_accumulate",
			Reason: fmt.Sprintf("must be at least 1, got %d", window),
		}
	}

	scaler, err := optimizer.NewGradScaler(optimizer.DefaultGradScalerConfig())
	if err != nil {
		return nil, err
	}

	return &Accumulator{
		window: window,
		clip:   clip,
		opt:    opt,
		scaler: scaler,
	}, nil
}

// Reset starts a fresh epoch: the window position and step count restart
// and any gradients left over from a dropped partial window are cleared.
// The loss scaler's calibration carries across epochs.
func (a *Accumulator) Reset() {
	a.calls = 0
	a.steps = 0
	a.opt.ZeroGrad()
}

// Steps returns the number of optimizer steps applied since the last Reset
func (a *Accumulator) Steps() int {
	return a.steps
}

// Scale returns the loss scaler's current calibration factor
func (a *Accumulator) Scale() float64 {
	return a.scaler.GetScale()
}

// Backward feeds one batch's loss through the scaled backward pass and, on
// a window boundary, unscales, clips and applies the accumulated gradients.
// A non-finite loss or gradient poisons the window: its optimizer step is
// skipped with a warning and the scale backs off, but training continues.
func (a *Accumulator) Backward(model Model, loss float64) error {
	a.calls++

	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		log.Printf("accumulator: non-finite loss %g, skipping backward pass", loss)
		a.scaler.MarkNonFinite()
	} else {
		// Backward of (scale/window)*loss: the window division lives on the
		// gradient pathway only, reported losses stay undivided.
		if err := model.Backward(a.scaler.Scale(1.0 / float64(a.window))); err != nil {
			return fmt.Errorf("backward pass failed: %v", err)
		}
	}

	if a.calls%a.window != 0 {
		return nil
	}

	params := a.opt.Parameters()
	a.scaler.Unscale(params)

	if a.scaler.FoundInf() {
		log.Printf("accumulator: non-finite gradients, skipping optimizer step (scale %g)", a.scaler.GetScale())
	} else {
		optimizer.ClipGradNorm(params, a.clip)
		if err := a.opt.Step(); err != nil {
			return fmt.Errorf("optimizer step failed: %v", err)
		}
		a.steps++
	}

	a.scaler.Update()
	a.opt.ZeroGrad()

	return nil
}
