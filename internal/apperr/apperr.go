// Package apperr defines the error kinds surfaced by the ledger services.
package apperr

import (
	"errors"
	"fmt"

	"github.com/hongminglow/hometown-ledger/internal/storage"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	Validation           Kind = "validation_error"
	Unauthenticated      Kind = "unauthenticated"
	Unauthorized         Kind = "unauthorized"
	InvalidPin           Kind = "invalid_pin"
	InsufficientFunds    Kind = "insufficient_funds"
	NotFound             Kind = "not_found"
	InvalidLinkedAccount Kind = "invalid_linked_account"
	Conflict             Kind = "conflict"
	GenerationExhausted  Kind = "generation_exhausted"
	StorageUnavailable   Kind = "storage_unavailable"
	InvariantViolation   Kind = "invariant_violation"
	Internal             Kind = "internal"
)

// Error carries a Kind, a caller-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message to cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the Kind from err. Errors that were never classified are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// FromStorage translates storage sentinels into application kinds. what names
// the entity for NotFound messages.
func FromStorage(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var conflict *storage.ConflictError
	switch {
	case errors.As(err, &conflict):
		return Wrap(Conflict, err, "%s already exists", conflict.Field)
	case errors.Is(err, storage.ErrNotFound):
		return Wrap(NotFound, err, "%s not found", what)
	case errors.Is(err, storage.ErrInsufficientFunds):
		return Wrap(InsufficientFunds, err, "insufficient funds")
	case errors.Is(err, storage.ErrOutOfRange):
		return Wrap(Validation, err, "amount exceeds the supported range")
	case errors.Is(err, storage.ErrUnavailable):
		return Wrap(StorageUnavailable, err, "storage unavailable")
	case errors.Is(err, storage.ErrAlreadyExists):
		return Wrap(Conflict, err, "%s already exists", what)
	}
	return Wrap(Internal, err, "unexpected storage failure")
}
