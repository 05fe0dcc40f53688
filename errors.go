package fdd

import "errors"

// Kind classifies the errors FDD can return, per the error taxonomy a
// caller needs to branch on: a missing key is recoverable in a way a
// corrupt footer is not.
type Kind int

const (
	// InvalidFile means the magic didn't match, the footer failed to
	// decode, or the file was truncated before a footer was ever written.
	InvalidFile Kind = iota
	// NotFound means a key or split name is absent from the active view.
	NotFound
	// DuplicateKey means an insert targeted a key already present.
	DuplicateKey
	// SchemaMismatch means a reopen's columns or compression disagree
	// with what is already on disk.
	SchemaMismatch
	// BadState means the operation doesn't apply to the handle's current
	// state (closed writer, read against a mid-write handle, etc).
	BadState
	// CodecError means an encode or decode call returned an error, or a
	// footer named a codec that was never registered.
	CodecError
	// IOError wraps an underlying filesystem failure.
	IOError
)

func (k Kind) String() string {
	switch k {
	case InvalidFile:
		return "invalid file"
	case NotFound:
		return "not found"
	case DuplicateKey:
		return "duplicate key"
	case SchemaMismatch:
		return "schema mismatch"
	case BadState:
		return "bad state"
	case CodecError:
		return "codec error"
	case IOError:
		return "io error"
	default:
		return "unknown"
	}
}

// Error is the concrete error type FDD returns. It carries a Kind so
// callers can branch with errors.Is/errors.As without string matching,
// and wraps the underlying cause where there is one.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "fdd: " + e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "fdd: " + e.Op + ": " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind, so errors.Is(err, fdd.ErrNotFound)
// works without a shared sentinel instance.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newErr(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Sentinels for the common cases, so callers can write errors.Is(err, fdd.ErrNotFound).
var (
	ErrNotFound       = &Error{Kind: NotFound, Op: "lookup"}
	ErrInvalidFile    = &Error{Kind: InvalidFile, Op: "open"}
	ErrDuplicateKey   = &Error{Kind: DuplicateKey, Op: "set"}
	ErrSchemaMismatch = &Error{Kind: SchemaMismatch, Op: "reopen"}
	ErrBadState       = &Error{Kind: BadState, Op: "op"}
	ErrCodec          = &Error{Kind: CodecError, Op: "codec"}
	ErrIO             = &Error{Kind: IOError, Op: "io"}
)
