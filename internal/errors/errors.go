// Package errors defines the structured error kinds returned by the store.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a store error.
type Kind string

const (
	// KindDBFile is returned when a path does not name a valid store
	// directory or a column name cannot be resolved.
	KindDBFile Kind = "DB_FILE"
	// KindIO wraps any underlying filesystem error.
	KindIO Kind = "IO"
	// KindRecord is returned when a record cannot be framed, e.g. it
	// contains the LF separator.
	KindRecord Kind = "RECORD"
)

// Sentinels usable with errors.Is to test the kind of an *Error.
var (
	ErrDBFile = stderrors.New("filedb: invalid store path")
	ErrIO     = stderrors.New("filedb: I/O error")
	ErrRecord = stderrors.New("filedb: invalid record")
)

// Error is a concrete error with a kind, the failing operation, the path
// it applied to, and the underlying cause if any.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// DBFile returns an error for a path that is not a valid store target.
func DBFile(path string) *Error {
	return &Error{Kind: KindDBFile, Op: "resolve", Path: path}
}

// IO wraps a filesystem error. Returns nil if err is nil.
func IO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

// Record returns an error for a record rejected by the codec.
func Record(op, path, msg string) *Error {
	return &Error{Kind: KindRecord, Op: op, Path: path, Err: stderrors.New(msg)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Kind == KindDBFile && e.Err == nil:
		return fmt.Sprintf("filedb: not a store path: %s", e.Path)
	case e.Path == "":
		return fmt.Sprintf("filedb: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("filedb: %s %s: %v", e.Op, e.Path, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrDBFile:
		return e.Kind == KindDBFile
	case ErrIO:
		return e.Kind == KindIO
	case ErrRecord:
		return e.Kind == KindRecord
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
