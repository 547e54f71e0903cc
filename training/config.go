package training

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tsawler/go-trainer/checkpoints"
)

// Train types selectable through Config.TrainType
const (
	TrainStandard      = "standard"
	TrainGenerative    = "generative"
	TrainAlternate     = "alternate"
	TrainComplementary = "complementary"
)

// Checkpoint formats selectable through Config.CkptFormat
const (
	CkptFormatJSON   = "json"
	CkptFormatBinary = "binary"
)

// Config holds the full configuration for a training run. Values are
// resolved once, validated at construction, and never edited downstream;
// all derived paths come from the methods here.
type Config struct {
	Src  string // Batch field name of the source side
	Trg  string // Batch field name of the target side
	Task string // Task label, recorded in checkpoint metadata

	Device     string // Compute device label for banners and metadata
	DeviceType string // Device family label

	NEpochs           int
	VocabSize         int
	ItersToAccumulate int // Gradient accumulation window
	LR                float64
	Clip              float64 // Global gradient norm ceiling (0 disables)

	EarlyStop bool
	Patience  int

	Ckpt       string // Primary checkpoint path; other paths derive from it
	CkptFormat string // "json" or "binary"

	TrainType string

	PrintEvery     int     // Batch progress cadence (0 disables)
	LabelSmoothing float64 // Symmetric label smoothing for adversarial labels
}

// DefaultConfig returns a configuration with the usual defaults filled in
func DefaultConfig() Config {
	return Config{
		Src:               "src",
		Trg:               "trg",
		Device:            "cpu",
		DeviceType:        "cpu",
		NEpochs:           10,
		ItersToAccumulate: 1,
		LR:                1e-4,
		Clip:              1.0,
		Patience:          5,
		CkptFormat:        CkptFormatJSON,
		TrainType:         TrainStandard,
		LabelSmoothing:    0.1,
	}
}

// Validate checks the configuration and reports the first problem found
func (c *Config) Validate() error {
	if c.NEpochs < 1 {
		return &ConfigError{Field: "n_epochs", Reason: fmt.Sprintf("must be at least 1, got %d", c.NEpochs)}
	}
	if c.ItersToAccumulate < 1 {
		return &ConfigError{Field: "iters_to_accumulate", Reason: fmt.Sprintf("must be at least 1, got %d", c.ItersToAccumulate)}
	}
	if c.LR <= 0 {
		return &ConfigError{Field: "lr", Reason: fmt.Sprintf("must be positive, got %g", c.LR)}
	}
	if c.Clip < 0 {
		return &ConfigError{Field: "clip", Reason: fmt.Sprintf("must be non-negative, got %g", c.Clip)}
	}
	if c.EarlyStop && c.Patience < 1 {
		return &ConfigError{Field: "patience", Reason: fmt.Sprintf("must be at least 1 when early stopping is on, got %d", c.Patience)}
	}
	if c.Src == "" || c.Trg == "" {
		return &ConfigError{Field: "src/trg", Reason: "source and target field names must be set"}
	}
	if c.Ckpt == "" {
		return &ConfigError{Field: "ckpt", Reason: "checkpoint path must be set"}
	}
	if c.RecordPath() == c.Ckpt {
		return &ConfigError{Field: "ckpt", Reason: "checkpoint path must not end in .json, it would collide with the record file"}
	}
	if c.LabelSmoothing < 0 || c.LabelSmoothing >= 0.5 {
		return &ConfigError{Field: "label_smoothing", Reason: fmt.Sprintf("must be in [0, 0.5), got %g", c.LabelSmoothing)}
	}

	switch c.CkptFormat {
	case CkptFormatJSON, CkptFormatBinary:
	default:
		return &ConfigError{Field: "ckpt_format", Reason: fmt.Sprintf("unknown format %q", c.CkptFormat)}
	}

	switch c.TrainType {
	case TrainStandard, TrainGenerative, TrainAlternate, TrainComplementary:
	default:
		return &ConfigError{Field: "train_type", Reason: fmt.Sprintf("unknown train type %q", c.TrainType)}
	}

	return nil
}

// RecordPath derives the metric record path from the checkpoint path by
// swapping the extension for .json
func (c *Config) RecordPath() string {
	ext := filepath.Ext(c.Ckpt)
	return strings.TrimSuffix(c.Ckpt, ext) + ".json"
}

// DisCkpt derives the discriminator checkpoint path from the primary one
func (c *Config) DisCkpt() string {
	ext := filepath.Ext(c.Ckpt)
	return strings.TrimSuffix(c.Ckpt, ext) + "_dis" + ext
}

// checkpointFormat maps the configured format name onto the saver format
func (c *Config) checkpointFormat() checkpoints.CheckpointFormat {
	if c.CkptFormat == CkptFormatBinary {
		return checkpoints.FormatBinary
	}
	return checkpoints.FormatJSON
}
