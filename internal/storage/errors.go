package storage

import (
	"errors"
	"fmt"
)

// Error kinds reported by the gateway. Match them with errors.Is.
var (
	ErrConnection = errors.New("connection error")
	ErrRead       = errors.New("read error")
	ErrWrite      = errors.New("write error")
	ErrDelete     = errors.New("delete error")
)

var (
	// ErrConnClosed is wrapped when a handle was closed or invalidated by a drop.
	ErrConnClosed = errors.New("connection closed")
	// ErrBlocked is wrapped when another holder keeps the database open.
	ErrBlocked = errors.New("database is held open elsewhere")
	// ErrVersion is wrapped when the stored schema is newer than requested.
	ErrVersion = errors.New("requested version is lower than the stored version")
)

// Error describes a failed gateway operation.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
