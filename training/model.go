package training

import (
	"github.com/tsawler/go-trainer/checkpoints"
	"github.com/tsawler/go-trainer/optimizer"
)

// Model is the training-facing surface of a model. The engine never looks
// inside the forward or backward math; it only sequences the calls.
//
// Forward computes the scalar loss for a labeled batch and retains whatever
// intermediate state the following Backward needs. Backward folds the
// gradients of scale times that loss into the parameters' Grad slices,
// accumulating on top of whatever is already there.
type Model interface {
	// Train puts the model in training mode
	Train()

	// Eval puts the model in evaluation mode
	Eval()

	// Forward computes the loss for a labeled batch
	Forward(batch Batch) (float64, error)

	// Backward accumulates gradients of scale times the last forward loss
	Backward(scale float64) error

	// Parameters returns the trainable parameters
	Parameters() []*optimizer.Parameter

	// StateDict exports the weights for checkpointing
	StateDict() []checkpoints.WeightTensor

	// LoadStateDict restores weights from a checkpoint
	LoadStateDict(weights []checkpoints.WeightTensor) error
}

// Generator extends Model with sampling, required by adversarial training.
// Generate must leave any state retained for Backward untouched.
type Generator interface {
	Model

	// Generate produces one output row per input row, maxLen tokens long
	Generate(inputs Matrix, maxLen int) (Matrix, error)
}

// Tokenizer decodes id rows back to text for sample previews
type Tokenizer interface {
	Decode(ids []float64) string
}
