package generation

import (
	"errors"
	"fmt"
)

// ErrMalformedOutput means no JSON object could be located in the model output
var ErrMalformedOutput = errors.New("malformed output: no JSON object found")

// SchemaValidationError is returned when repaired output does not decode into,
// or does not satisfy, the target schema
type SchemaValidationError struct {
	Schema string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %v", e.Schema, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is returned after the last attempt of a retried operation fails
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	LastErr   error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// ConfigurationError means a strategy is missing an input it cannot run without
type ConfigurationError struct {
	Strategy string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.Strategy, e.Reason)
}

// UnsupportedSourceError means a strategy name has no matching adapter
type UnsupportedSourceError struct {
	Source string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("unsupported source: %q", e.Source)
}
