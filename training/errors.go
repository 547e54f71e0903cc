package training

import (
	"errors"
	"fmt"
)

// ErrMissingField marks errors caused by a batch lacking a field that the
// configured strategy requires. Use errors.Is to match it across wrapping.
var ErrMissingField = errors.New("missing batch field")

// ConfigError reports an invalid training setup detected at construction
// time: a bad configuration value or a missing collaborator.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// FieldError reports which batch field was absent. It unwraps to
// ErrMissingField so callers can match either the sentinel or the detail.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("batch has no field %q", e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrMissingField
}
