package training

import (
	"math"
)

// EarlyStopping halts a run when validation loss keeps failing to improve
// on the epoch before. The countdown starts at patience, resets on any
// strict improvement over the previous epoch's loss, and decrements
// otherwise; the run stops when it reaches zero. Note the comparison is
// against the previous epoch, not the best epoch so far.
type EarlyStopping struct {
	patience  int
	remaining int
	prevLoss  float64
}

// NewEarlyStopping creates an early stopper with the given patience
func NewEarlyStopping(patience int) *EarlyStopping {
	return &EarlyStopping{
		patience:  patience,
		remaining: patience,
		prevLoss:  math.Inf(1),
	}
}

// Update consumes one epoch's validation loss and reports whether the run
// should stop after this epoch.
func (es *EarlyStopping) Update(loss float64) bool {
	if loss < es.prevLoss {
		es.remaining = es.patience
	} else {
		es.remaining--
	}
	es.prevLoss = loss

	return es.remaining <= 0
}

// Remaining returns the current countdown value
func (es *EarlyStopping) Remaining() int {
	return es.remaining
}
