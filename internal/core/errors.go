package core

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	KindFileNotFound Kind = "file_not_found"
	KindRead         Kind = "read"
	KindParse        Kind = "parse"
	KindDatabase     Kind = "database"
	KindValidation   Kind = "validation"
)

// Error is the error type returned by core operations.
type Error struct {
	Op   string // operation, e.g. "read csv"
	Kind Kind
	Path string // file involved, if any
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(op string, kind Kind, path string, err error) *Error {
	return &Error{Op: op, Kind: kind, Path: path, Err: err}
}

// Validationf builds a KindValidation error from a format string.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain holds an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
