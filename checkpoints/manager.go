package checkpoints

import (
	"fmt"
	"math"
)

// Manager owns the checkpoint file for one model and tracks the best
// validation score seen for it. The tracked score never increases: a
// checkpoint is written only when the new score matches or improves on
// the best one, so the file on disk always holds the best state so far.
type Manager struct {
	path  string
	saver *CheckpointSaver
	best  float64
	saved bool
}

// NewManager creates a manager writing to path in the given format
func NewManager(path string, format CheckpointFormat) *Manager {
	return &Manager{
		path:  path,
		saver: NewCheckpointSaver(format),
		best:  math.Inf(1),
	}
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.path
}

// Best returns the best score recorded so far (+Inf before the first update)
func (m *Manager) Best() float64 {
	return m.best
}

// Saved reports whether any checkpoint has been written
func (m *Manager) Saved() bool {
	return m.saved
}

// Improved reports whether Update would save for this score. Callers use
// it to skip collecting model state when nothing would be written.
func (m *Manager) Improved(score float64) bool {
	return score <= m.best
}

// Update persists the checkpoint when score matches or improves on the best
// score so far, and reports whether it saved. Ties overwrite the stored
// checkpoint so the recorded epoch tracks the latest equally-good state.
func (m *Manager) Update(checkpoint *Checkpoint, score float64) (bool, error) {
	if score > m.best {
		return false, nil
	}

	if err := m.saver.SaveCheckpoint(checkpoint, m.path); err != nil {
		return false, fmt.Errorf("failed to save best checkpoint: %v", err)
	}

	m.best = score
	m.saved = true
	return true, nil
}

// Load reads the checkpoint back from the manager's path
func (m *Manager) Load() (*Checkpoint, error) {
	return m.saver.LoadCheckpoint(m.path)
}
