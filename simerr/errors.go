// Package simerr defines the error taxonomy shared by the generator and the stepper.
package simerr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind string

const (
	// KindInvalidParameter indicates bad caller input. Never retried.
	KindInvalidParameter Kind = "invalid_parameter"
	// KindInvalidTimestep indicates a step size outside (0, max].
	KindInvalidTimestep Kind = "invalid_timestep"
	// KindSimulationDiverged indicates numerical repair failed; fatal until reset.
	KindSimulationDiverged Kind = "simulation_diverged"
	// KindIndexOutOfRange indicates a bad particle index.
	KindIndexOutOfRange Kind = "index_out_of_range"
	// KindInternal is returned by KindOf for errors outside the taxonomy.
	KindInternal Kind = "internal"
)

// Error is the base error type for simulation errors.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidParameter   = &Error{Kind: KindInvalidParameter}
	ErrInvalidTimestep    = &Error{Kind: KindInvalidTimestep}
	ErrSimulationDiverged = &Error{Kind: KindSimulationDiverged}
	ErrIndexOutOfRange    = &Error{Kind: KindIndexOutOfRange}
)

// InvalidParameterf creates an invalid parameter error with formatting.
func InvalidParameterf(format string, args ...any) error {
	return &Error{Kind: KindInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

// WrapInvalidParameter wraps err as an invalid parameter error.
func WrapInvalidParameter(message string, err error) error {
	return &Error{Kind: KindInvalidParameter, Message: message, Err: err}
}

// InvalidTimestep creates an invalid timestep error for dt.
func InvalidTimestep(dt, maxDT float64) error {
	return &Error{
		Kind:    KindInvalidTimestep,
		Message: fmt.Sprintf("dt=%g outside (0, %g]", dt, maxDT),
	}
}

// Divergedf creates a simulation diverged error with formatting.
func Divergedf(format string, args ...any) error {
	return &Error{Kind: KindSimulationDiverged, Message: fmt.Sprintf(format, args...)}
}

// IndexOutOfRange creates an index error for index against length n.
func IndexOutOfRange(index, n int) error {
	return &Error{
		Kind:    KindIndexOutOfRange,
		Message: fmt.Sprintf("index %d out of range [0, %d)", index, n),
	}
}

// KindOf returns the kind of err, or KindInternal if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
