package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a property, phase or other registered key
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when registering a key (case-insensitive)
	// that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidMetadata is returned for metadata missing required fields.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrInvalidFormat is returned for property tokens outside the
	// BASE(index)?*? grammar.
	ErrInvalidFormat = errors.New("invalid property string format")

	// ErrNoNormalizingFluid is returned when a normalized value is requested
	// before a normalizing fluid was declared.
	ErrNoNormalizingFluid = fmt.Errorf("normalizing fluid not set: %w", ErrNotFound)

	// ErrUnsupportedProperty is returned when no calculation strategy can
	// resolve a request.
	ErrUnsupportedProperty = errors.New("unsupported property")

	// ErrDivisionByZero is returned when the normalizing value is zero or
	// not finite.
	ErrDivisionByZero = errors.New("division by zero normalizing value")

	ErrIndexOutOfRange = errors.New("output index out of range")
	ErrNotNumeric      = errors.New("value is not numeric")

	// ErrPhaseUnsupported is returned by a PrimaryBackend that cannot classify
	// the phase of its current composition (typically mixtures).
	ErrPhaseUnsupported = errors.New("phase classification not supported by backend")

	// ErrPhaseInference is returned when no rule of the manual phase
	// classification matches.
	ErrPhaseInference = errors.New("phase inference failed")

	// ErrNoPhase is returned when the phase is read before any flash.
	ErrNoPhase = errors.New("phase not determined")

	// ErrBackendPathSet is returned when the process-wide backend path is
	// configured twice with different values.
	ErrBackendPathSet = errors.New("backend path already set")
)

// ConvergenceKind distinguishes the flash failures the state controller
// knows how to recover from.
type ConvergenceKind int

const (
	ConvergenceOther ConvergenceKind = iota
	ConvergenceTwoPhase
)

func (k ConvergenceKind) String() string {
	switch k {
	case ConvergenceTwoPhase:
		return "two-phase"
	default:
		return "other"
	}
}

// ConvergenceError is a primary backend flash failure. Error() returns the
// backend message unchanged.
type ConvergenceError struct {
	Kind ConvergenceKind
	Err  error
}

func (e *ConvergenceError) Error() string {
	if e.Err == nil {
		return "flash failed to converge"
	}
	return e.Err.Error()
}

func (e *ConvergenceError) Unwrap() error { return e.Err }

// RootSearchReason tells why the two-phase quality search gave up.
type RootSearchReason int

const (
	RootNotBracketed RootSearchReason = iota + 1
	RootMaxIterations
)

func (r RootSearchReason) String() string {
	switch r {
	case RootNotBracketed:
		return "root not bracketed"
	case RootMaxIterations:
		return "maximum iterations reached"
	default:
		return "unknown"
	}
}

// RootSearchError is returned when the two-phase fallback search fails. It is
// never retried.
type RootSearchError struct {
	Reason     RootSearchReason
	Lo, Hi     float64
	FLo, FHi   float64
	Iterations int
	// Err is the backend error that interrupted the search, if any.
	Err error
}

func (e *RootSearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("two-phase quality search failed after %d iterations: %v", e.Iterations, e.Err)
	}
	return fmt.Sprintf("two-phase quality search: %s on [%g, %g] (f=%g, %g) after %d iterations",
		e.Reason, e.Lo, e.Hi, e.FLo, e.FHi, e.Iterations)
}

func (e *RootSearchError) Unwrap() error { return e.Err }

// DomainError is a reference backend failure with an error code above
// ReferenceErrorThreshold.
type DomainError struct {
	Code int
	Text string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("reference backend error %d: %s", e.Code, e.Text)
}
