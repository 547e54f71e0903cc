package optimizer

import (
	"fmt"
	"math"

	"github.com/tsawler/go-trainer/checkpoints"
)

// AdamWConfig holds configuration for the AdamW optimizer
type AdamWConfig struct {
	LearningRate float64
	Beta1        float64 // Momentum decay (typically 0.9)
	Beta2        float64 // Variance decay (typically 0.999)
	Epsilon      float64 // Small constant to prevent division by zero (typically 1e-8)
	WeightDecay  float64 // Decoupled weight decay coefficient
}

// DefaultAdamWConfig returns default AdamW optimizer configuration
func DefaultAdamWConfig() AdamWConfig {
	return AdamWConfig{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0.01,
	}
}

// AdamW implements Adam with decoupled weight decay (Loshchilov & Hutter).
// Unlike classic L2 regularization the decay term is applied directly to the
// weights, outside the adaptive moment normalization.
type AdamW struct {
	config AdamWConfig
	lr     float64

	params []*Parameter

	// First and second moment estimates, one slice per parameter
	m [][]float64
	v [][]float64

	// Step tracking for bias correction
	stepCount uint64
}

// NewAdamW creates a new AdamW optimizer over the given parameters
func NewAdamW(params []*Parameter, config AdamWConfig) (*AdamW, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters provided")
	}
	if config.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %g", config.LearningRate)
	}
	if config.Beta1 < 0 || config.Beta1 >= 1 {
		return nil, fmt.Errorf("beta1 must be in [0, 1), got %g", config.Beta1)
	}
	if config.Beta2 < 0 || config.Beta2 >= 1 {
		return nil, fmt.Errorf("beta2 must be in [0, 1), got %g", config.Beta2)
	}
	if config.Epsilon <= 0 {
		return nil, fmt.Errorf("epsilon must be positive, got %g", config.Epsilon)
	}
	if config.WeightDecay < 0 {
		return nil, fmt.Errorf("weight decay must be non-negative, got %g", config.WeightDecay)
	}

	adamw := &AdamW{
		config: config,
		lr:     config.LearningRate,
		params: params,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}

	for i, param := range params {
		if len(param.Grad) != len(param.Data) {
			return nil, fmt.Errorf("parameter %s: gradient length %d does not match data length %d",
				param.Name, len(param.Grad), len(param.Data))
		}
		adamw.m[i] = make([]float64, len(param.Data))
		adamw.v[i] = make([]float64, len(param.Data))
	}

	return adamw, nil
}

// Step performs a single optimization step
func (a *AdamW) Step() error {
	a.stepCount++

	// Bias correction for the moment estimates
	bc1 := 1.0 - math.Pow(a.config.Beta1, float64(a.stepCount))
	bc2 := 1.0 - math.Pow(a.config.Beta2, float64(a.stepCount))

	for i, param := range a.params {
		m := a.m[i]
		v := a.v[i]

		for j, grad := range param.Grad {
			m[j] = a.config.Beta1*m[j] + (1.0-a.config.Beta1)*grad
			v[j] = a.config.Beta2*v[j] + (1.0-a.config.Beta2)*grad*grad

			mHat := m[j] / bc1
			vHat := v[j] / bc2

			update := mHat / (math.Sqrt(vHat) + a.config.Epsilon)
			param.Data[j] -= a.lr * (update + a.config.WeightDecay*param.Data[j])
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters
func (a *AdamW) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR gets the current learning rate
func (a *AdamW) GetLR() float64 {
	return a.lr
}

// SetLR sets the learning rate
func (a *AdamW) SetLR(lr float64) {
	a.lr = lr
}

// Parameters returns the parameters under optimization
func (a *AdamW) Parameters() []*Parameter {
	return a.params
}

// StepCount returns the number of optimization steps taken
func (a *AdamW) StepCount() uint64 {
	return a.stepCount
}

// GetState extracts optimizer state for checkpointing
func (a *AdamW) GetState() (*checkpoints.OptimizerState, error) {
	state := &checkpoints.OptimizerState{
		Type: "AdamW",
		Parameters: map[string]interface{}{
			"learning_rate": a.lr,
			"beta1":         a.config.Beta1,
			"beta2":         a.config.Beta2,
			"epsilon":       a.config.Epsilon,
			"weight_decay":  a.config.WeightDecay,
			"step_count":    float64(a.stepCount),
		},
		StateData: make([]checkpoints.OptimizerTensor, 0, 2*len(a.params)),
	}

	for i, param := range a.params {
		state.StateData = append(state.StateData,
			momentTensor(param.Name, a.m[i], "m"),
			momentTensor(param.Name, a.v[i], "v"))
	}

	return state, nil
}

// LoadState restores optimizer state from checkpoint
func (a *AdamW) LoadState(state *checkpoints.OptimizerState) error {
	if err := validateStateType("AdamW", state); err != nil {
		return err
	}

	stepCount, err := hyperparameter(state, "step_count")
	if err != nil {
		return err
	}
	lr, err := hyperparameter(state, "learning_rate")
	if err != nil {
		return err
	}

	for i, param := range a.params {
		if err := restoreMoment(state, param.Name, "m", a.m[i]); err != nil {
			return err
		}
		if err := restoreMoment(state, param.Name, "v", a.v[i]); err != nil {
			return err
		}
	}

	a.stepCount = uint64(stepCount)
	a.lr = lr
	return nil
}
