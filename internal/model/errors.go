// Package model holds the data types and error kinds shared across the
// geohash engine, partitioner, registry, reactor, coordinator and
// orchestrator packages.
package model

import "errors"

// ErrorKind classifies a failure the way spec §7 enumerates them, so
// callers can branch with errors.Is without parsing messages.
type ErrorKind struct {
	name string
}

func (k ErrorKind) Error() string { return k.name }

var (
	ErrHash          = ErrorKind{"hash_error"}
	ErrPartition     = ErrorKind{"partition_error"}
	ErrIO            = ErrorKind{"io_error"}
	ErrFilesystem    = ErrorKind{"filesystem_error"}
	ErrSerialization = ErrorKind{"serialization_error"}
	ErrTimeout       = ErrorKind{"timeout_error"}
	ErrNotFound      = ErrorKind{"not_found_error"}
	ErrValidation    = ErrorKind{"validation_error"}
)

// KindError wraps an ErrorKind with a message and an optional cause,
// satisfying errors.Is(err, model.ErrHash) and errors.Unwrap.
type KindError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *KindError) Error() string {
	if e.Cause != nil {
		return e.Kind.name + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.name + ": " + e.Message
}

func (e *KindError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func (e *KindError) Unwrap() error { return e.Cause }

func newErr(kind ErrorKind, msg string, cause error) *KindError {
	return &KindError{Kind: kind, Message: msg, Cause: cause}
}

func NewHashError(msg string) error          { return newErr(ErrHash, msg, nil) }
func NewPartitionError(msg string) error     { return newErr(ErrPartition, msg, nil) }
func NewIOError(msg string, cause error) error {
	return newErr(ErrIO, msg, cause)
}
func NewFilesystemError(msg string, cause error) error {
	return newErr(ErrFilesystem, msg, cause)
}
func NewSerializationError(msg string, cause error) error {
	return newErr(ErrSerialization, msg, cause)
}
func NewTimeoutError(msg string) error    { return newErr(ErrTimeout, msg, nil) }
func NewNotFoundError(msg string) error   { return newErr(ErrNotFound, msg, nil) }
func NewValidationError(msg string) error { return newErr(ErrValidation, msg, nil) }

// IsKind reports whether err (or something it wraps) is of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, kind)
}
