package jsonstore

import "os"

// Option configures a Store.
type Option[T any] func(*options[T])

// WithIndent sets the indentation used when saving. "" writes compact JSON.
func WithIndent[T any](indent string) Option[T] {
	return func(o *options[T]) {
		o.indent = indent
	}
}

// WithFileMode sets the permissions of the saved file. Default is 0644.
func WithFileMode[T any](mode os.FileMode) Option[T] {
	return func(o *options[T]) {
		o.fileMode = mode
	}
}

// WithCreateIfMissing controls whether a missing file yields a fresh document
// (true, the default) or an error.
func WithCreateIfMissing[T any](create bool) Option[T] {
	return func(o *options[T]) {
		o.createIfMissing = create
	}
}

// WithDefaultValue supplies the document used when the file is missing, and
// the base onto which an existing file is decoded.
func WithDefaultValue[T any](fn func() *T) Option[T] {
	return func(o *options[T]) {
		o.defaultValue = fn
	}
}

// WithCompact is WithIndent("").
func WithCompact[T any]() Option[T] {
	return WithIndent[T]("")
}
