// Package launcherr defines the launcher's diagnostic error kinds
// (spec.md §7). These are distinct diagnostics, not behaviors — every
// kind carries the same *Error shape, letting callers format a single
// line ("kind: message") and exit non-zero without a type switch at
// every call site.
package launcherr

import "fmt"

// Kind distinguishes the class of failure for diagnostic purposes.
type Kind string

const (
	InvalidLayout     Kind = "InvalidLayout"
	InvalidManifest   Kind = "InvalidManifest"
	IntegrityFailure  Kind = "IntegrityFailure"
	ExtractionFailure Kind = "ExtractionFailure"
	BadPlaceholder    Kind = "BadPlaceholder"
	UnknownBoot       Kind = "UnknownBoot"
	MissingFile       Kind = "MissingFile"
	Unsupported       Kind = "Unsupported"
	IOError           Kind = "IOError"
)

// Error is the concrete error type raised by every package in this
// module for a user-facing failure.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error with a formatted message and no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that carries cause as its wrapped error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}
