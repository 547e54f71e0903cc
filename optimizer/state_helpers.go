package optimizer

import (
	"fmt"

	"github.com/tsawler/go-trainer/checkpoints"
)

// Common helper functions for optimizer state management

// momentTensor copies one moment vector into a checkpoint state tensor
func momentTensor(name string, data []float64, stateType string) checkpoints.OptimizerTensor {
	return checkpoints.OptimizerTensor{
		Name:      name,
		Data:      append([]float64(nil), data...),
		StateType: stateType,
	}
}

// restoreMoment copies the matching state tensor back into dst
func restoreMoment(state *checkpoints.OptimizerState, name, stateType string, dst []float64) error {
	for _, tensor := range state.StateData {
		if tensor.Name != name || tensor.StateType != stateType {
			continue
		}
		if len(tensor.Data) != len(dst) {
			return fmt.Errorf("state size mismatch for %s (%s): expected %d elements, got %d",
				name, stateType, len(dst), len(tensor.Data))
		}
		copy(dst, tensor.Data)
		return nil
	}
	return fmt.Errorf("state tensor not found: %s (%s)", name, stateType)
}

// hyperparameter reads a numeric hyperparameter from the state. Values pass
// through JSON on the way back, so they arrive as float64.
func hyperparameter(state *checkpoints.OptimizerState, key string) (float64, error) {
	raw, ok := state.Parameters[key]
	if !ok {
		return 0, fmt.Errorf("missing hyperparameter %q in optimizer state", key)
	}
	value, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("hyperparameter %q has unexpected type %T", key, raw)
	}
	return value, nil
}
