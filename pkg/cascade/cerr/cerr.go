// Package cerr defines Cascade's error taxonomy. Every stage of the
// pipeline (loader, normalizer, solver) fails with one of these kinds
// so callers can match on Kind rather than parsing messages; the CLI's
// own argument and time-expression errors are plain errors.
package cerr

import "fmt"

// Kind discriminates the failure categories the pipeline can raise.
type Kind string

const (
	InvalidInput      Kind = "InvalidInput"
	ReferenceError    Kind = "ReferenceError"
	CyclicDependency  Kind = "CyclicDependency"
	DeadlineConflict  Kind = "DeadlineConflict"
	WindowError       Kind = "WindowError"
	Infeasible        Kind = "Infeasible"
	SolverLimit       Kind = "SolverLimit"
	IOFailure         Kind = "IOFailure"
)

// Error is the concrete error type raised across the pipeline.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that wraps an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err (or something it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ce, ok := err.(*Error); ok {
			if ce.Kind == kind {
				return true
			}
			err = ce.Err
			continue
		}
		return false
	}
	return false
}
