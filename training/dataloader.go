package training

import (
	"fmt"
	"math/rand"
)

// DataLoader yields the batches of one pass over a dataset. Len is the
// batch count of a full pass and is the denominator for epoch averages.
type DataLoader interface {
	// Len returns the number of batches in one pass
	Len() int

	// Iterator starts a fresh pass and yields its batches in order
	Iterator() <-chan Batch
}

// SliceLoader is an in-memory DataLoader over pre-built batches, with
// optional reshuffling between passes.
type SliceLoader struct {
	batches []Batch
	shuffle bool
}

// NewSliceLoader creates a loader over the given batches
func NewSliceLoader(batches []Batch, shuffle bool) (*SliceLoader, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("no batches provided")
	}
	return &SliceLoader{
		batches: batches,
		shuffle: shuffle,
	}, nil
}

// Len returns the number of batches in an epoch
func (sl *SliceLoader) Len() int {
	return len(sl.batches)
}

// Iterator returns a channel-based iterator for easy use in training loops
func (sl *SliceLoader) Iterator() <-chan Batch {
	batchChan := make(chan Batch, 1)

	go func() {
		defer close(batchChan)

		order := make([]int, len(sl.batches))
		for i := range order {
			order[i] = i
		}
		if sl.shuffle {
			rand.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		for _, idx := range order {
			batchChan <- sl.batches[idx]
		}
	}()

	return batchChan
}
