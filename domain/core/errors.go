package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Validation errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidPrior     = errors.New("invalid prior specification")
	ErrInvalidSeries    = errors.New("invalid time series")
	ErrInsufficientData = errors.New("insufficient data for inference")

	// Sampling errors
	ErrNonFinite = errors.New("non-finite log-density")
	ErrNoDraws   = errors.New("no chain produced draws")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// NewConfigError reports a configuration error with the offending field
func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

// NewPriorError reports an invalid prior for a named latent quantity
func NewPriorError(name string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidPrior, name, reason)
}

// NewSeriesError reports an invalid input series
func NewSeriesError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSeries, reason)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrInvalidPrior)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrInvalidSeries) || errors.Is(err, ErrInsufficientData)
}

func IsNumericalError(err error) bool {
	return errors.Is(err, ErrNonFinite)
}
