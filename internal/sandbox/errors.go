package sandbox

import (
	"errors"
	"fmt"
)

// Kind classifies a tool-level failure.
type Kind string

const (
	KindContainment   Kind = "containment"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindResourceLimit Kind = "resource_limit"
	KindTimeout       Kind = "timeout"
	KindPersistence   Kind = "persistence"
	KindDenied        Kind = "denied"
	KindInternal      Kind = "internal"
)

// Error is the error type returned by every sandboxed operation.
// Path is the caller-supplied (relative) path, not the resolved one.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an underlying error.
func Wrap(kind Kind, path string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

func containmentError(path string) *Error {
	return Errorf(KindContainment, path, "%q is not in the working directory", path)
}
