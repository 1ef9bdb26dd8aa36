package router

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCandidates is returned when a router has nothing to classify against.
	ErrNoCandidates = errors.New("candidate set is empty")

	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("query is empty")
)

// ConfigurationError reports an invalid router configuration value.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "invalid router configuration"
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidateTuning checks the result cap and score threshold.
func ValidateTuning(n int, threshold float64) error {
	if n < 1 {
		return &ConfigurationError{Field: "n", Err: fmt.Errorf("must be at least 1, got %d", n)}
	}
	// Written this way so NaN fails too.
	if !(threshold >= 0 && threshold <= 1) {
		return &ConfigurationError{Field: "threshold", Err: fmt.Errorf("must be within [0,1], got %v", threshold)}
	}
	return nil
}
