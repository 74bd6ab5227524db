package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrConfiguration marks setup problems found before a run starts.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrNumerical marks a step that cannot be computed, such as a singular
	// constraint system.
	ErrNumerical = errors.New("dynamo: numerical failure")

	// ErrValidation marks a malformed model or constraint definition.
	ErrValidation = errors.New("dynamo: validation failed")
)

// ConfigurationError reports mismatched array lengths or a missing
// reference at initialization.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NumericalError is returned by a step that must not proceed.
type NumericalError struct {
	Op     string
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical: %s: %s", e.Op, e.Reason)
}

func (e *NumericalError) Unwrap() error { return ErrNumerical }

// ValidationError points at the offending object by index. Index is -1 when
// the problem is not tied to a single element.
type ValidationError struct {
	Object string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("validation: %s: %s", e.Object, e.Reason)
	}
	return fmt.Sprintf("validation: %s %d: %s", e.Object, e.Index, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
