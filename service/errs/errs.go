// Package errs defines the lifecycle core's error taxonomy: a small set of
// Kinds rather than a proliferation of sentinel error types, so callers can
// branch on "what category of failure is this" with errors.Is and a single
// Kind comparison instead of importing a dozen var Err... sentinels.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Unknown is the zero value; code should never construct an Error
	// with this Kind deliberately.
	Unknown Kind = iota

	// InvalidState means the operation was attempted from a lifecycle
	// state that does not permit it (e.g. adding a runtime dependency
	// before Start, or Start called on a node that has already stopped).
	InvalidState

	// InvalidArgument means a caller-supplied value was structurally
	// wrong (e.g. a nil child).
	InvalidArgument

	// DependencyFailure means a child or runtime dependency crashed or
	// failed to start, and the failure is being surfaced to the parent.
	DependencyFailure

	// ActivityCrash means a background activity (future, loop task,
	// interval timer, cron timer) panicked or returned an error that was
	// not recovered by its crash policy.
	ActivityCrash

	// Cancelled means the operation observed context cancellation or a
	// stop signal before completing.
	Cancelled

	// Timeout means a deadline (drain deadline, force-kill grace) elapsed
	// before the operation finished.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case InvalidState:
		return "invalid_state"
	case InvalidArgument:
		return "invalid_argument"
	case DependencyFailure:
		return "dependency_failure"
	case ActivityCrash:
		return "activity_crash"
	case Cancelled:
		return "cancelled"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the concrete error type the core returns. Op names the operation
// that failed (e.g. "service.Start", "service.AddRuntimeDependency"); Kind
// classifies the failure; Err, if non-nil, wraps an underlying cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error wrapping err under the given op and kind. Wrap
// returns nil if err is nil, so it is safe to use as `return errs.Wrap(...)`
// at the end of a function that may or may not have failed.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, or Unknown
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
