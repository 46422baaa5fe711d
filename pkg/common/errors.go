package common

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies failures so callers can decide how to react.
type Kind int

const (
	KindUnknown Kind = iota
	// NotFound is a missing file or directory.
	NotFound
	// NetworkError is a failed request or a non-success HTTP status.
	NetworkError
	// IoError is a local read or write failure.
	IoError
	// IntegrityMismatch is a digest that differs from the expected one.
	IntegrityMismatch
	// UnsupportedFormat is an archive type that cannot be extracted.
	UnsupportedFormat
	// InvalidEntry is a malformed or escaping path (archive entry, batch destination, asset hash).
	InvalidEntry
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	NotFound:          "not found",
	NetworkError:      "network error",
	IoError:           "io error",
	IntegrityMismatch: "integrity mismatch",
	UnsupportedFormat: "unsupported format",
	InvalidEntry:      "invalid entry",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether downloading again may fix the failure.
func (k Kind) Retryable() bool {
	return k == NetworkError || k == IntegrityMismatch
}

// Error is the typed error returned by launcher operations.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound          = &Error{Kind: NotFound}
	ErrNetwork           = &Error{Kind: NetworkError}
	ErrIO                = &Error{Kind: IoError}
	ErrIntegrityMismatch = &Error{Kind: IntegrityMismatch}
	ErrUnsupportedFormat = &Error{Kind: UnsupportedFormat}
	ErrInvalidEntry      = &Error{Kind: InvalidEntry}
)

// NewError builds an Error. err may be nil.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds an Error whose cause is a formatted message.
func Errorf(kind Kind, op, path, format string, args ...any) *Error {
	return NewError(kind, op, path, fmt.Errorf(format, args...))
}

// FromIO wraps a filesystem error, mapping fs.ErrNotExist to NotFound.
func FromIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, fs.ErrNotExist) {
		return NewError(NotFound, op, path, err)
	}
	return NewError(IoError, op, path, err)
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any sentinel of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Path == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FromNetwork wraps a transfer error as NetworkError unless it is already typed.
func FromNetwork(op, uri string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(NetworkError, op, uri, err)
}
