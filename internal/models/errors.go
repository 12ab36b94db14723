package models

import (
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid registry or scoring configuration.
// Fatal at load or call time, never silently corrected.
type ConfigurationError struct {
	Msg string
}

// Error implements error
func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// NewConfigurationError builds a ConfigurationError from a format string
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ErrNoUsableMetrics is returned by the scorer when zero configured metrics
// survive absence and confidence filtering. Distinguishes "we computed a low
// score" from "we could not compute a score at all".
var ErrNoUsableMetrics = errors.New("no usable metrics shared between profiles")
