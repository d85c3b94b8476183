// Package ixerr defines the error kinds surfaced by the index core, the
// database facade, and the continuous tracker, following the teacher's
// sentinel-error-plus-wrap idiom (see internal/storage/sqlite/errors.go)
// generalized to the full kind list the core needs.
package ixerr

import (
	"database/sql"
	"errors"
	"fmt"
)

// Kind is one of the error kinds the core may surface. A call either
// returns nil or wraps exactly one Kind.
type Kind int

const (
	None Kind = iota
	InsufficientMemory
	NoDatabase
	DatabaseBusy
	DatabaseVersion
	DatabaseCorrupt
	Interrupted
	NotFound
	DuplicateEntry
	InvalidArgument
	IO
	FileNotifyInit
	FileNotifyInsufficient
	Expected
	Unsupported
	StillNotImplemented
	Timeout
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case InsufficientMemory:
		return "insufficient memory"
	case NoDatabase:
		return "no database"
	case DatabaseBusy:
		return "database busy"
	case DatabaseVersion:
		return "database version"
	case DatabaseCorrupt:
		return "database corrupt"
	case Interrupted:
		return "interrupted"
	case NotFound:
		return "not found"
	case DuplicateEntry:
		return "duplicate entry"
	case InvalidArgument:
		return "invalid argument"
	case IO:
		return "I/O error"
	case FileNotifyInit:
		return "file notify init failed"
	case FileNotifyInsufficient:
		return "file notify resources insufficient"
	case Expected:
		return "expected condition not met"
	case Unsupported:
		return "unsupported"
	case StillNotImplemented:
		return "not implemented"
	case Timeout:
		return "timeout"
	default:
		return "unknown error kind"
	}
}

// Error is a *Error-comparable sentinel carrying a Kind and an optional
// text reason for logging.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// New builds an *Error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Is supports errors.Is(err, ixerr.ErrNotFound) style sentinels below: two
// *Error values match if their Kind matches, regardless of Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is comparisons against a bare Kind.
var (
	ErrNotFound     = &Error{Kind: NotFound}
	ErrDuplicate    = &Error{Kind: DuplicateEntry}
	ErrBusy         = &Error{Kind: DatabaseBusy}
	ErrInterrupted  = &Error{Kind: Interrupted}
	ErrInvalidArg   = &Error{Kind: InvalidArgument}
	ErrNoDatabase   = &Error{Kind: NoDatabase}
	ErrUnsupported  = &Error{Kind: Unsupported}
	ErrNotImplSpec  = &Error{Kind: StillNotImplemented}
	ErrTimeout      = &Error{Kind: Timeout}
	ErrVersion      = &Error{Kind: DatabaseVersion}
	ErrCorrupt      = &Error{Kind: DatabaseCorrupt}
	ErrNotifyInit   = &Error{Kind: FileNotifyInit}
	ErrNotifyExhaust = &Error{Kind: FileNotifyInsufficient}
)

// Of returns the Kind an error carries, or None if it does not wrap an
// *Error.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return None
}

// Wrap attaches operation context to a raw backend error, converting
// sql.ErrNoRows to NotFound the way the teacher's wrapDBError does.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation label.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(fmt.Sprintf(format, args...), err)
}
