package optimizer

import (
	"fmt"

	"github.com/tsawler/go-trainer/checkpoints"
)

// Parameter is the flat view of one trainable tensor. The model owns the
// backing storage; optimizers update Data in place from Grad, and gradient
// helpers (scaling, clipping) operate on Grad directly.
type Parameter struct {
	Name  string
	Shape []int
	Data  []float64
	Grad  []float64
}

// NumElements returns the number of elements in the parameter
func (p *Parameter) NumElements() int {
	return len(p.Data)
}

// ZeroGrad resets the parameter's gradient to zero
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// Optimizer defines the common interface for all optimizers
// This interface enables state save/restore for checkpoint functionality
type Optimizer interface {
	// Step performs a single optimization step over all parameters
	Step() error

	// ZeroGrad resets gradients to zero for all parameters
	ZeroGrad()

	// GetLR gets the current learning rate
	GetLR() float64

	// SetLR sets the learning rate
	SetLR(lr float64)

	// Parameters returns the parameters under optimization
	Parameters() []*Parameter

	// GetState extracts optimizer state for checkpointing
	GetState() (*checkpoints.OptimizerState, error)

	// LoadState restores optimizer state from checkpoint
	LoadState(state *checkpoints.OptimizerState) error
}

// validateStateType ensures the state type matches the optimizer
func validateStateType(optimizerType string, state *checkpoints.OptimizerState) error {
	if state == nil {
		return fmt.Errorf("optimizer state is nil")
	}
	if state.Type != optimizerType {
		return fmt.Errorf("state type mismatch: expected %s, got %s", optimizerType, state.Type)
	}
	return nil
}
