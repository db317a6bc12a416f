// Package action holds the error taxonomy and the result envelope returned by
// every administrative action.
package action

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind. Match with errors.Is.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotConfigured  = errors.New("object store not configured")
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrStorageWrite   = errors.New("storage write failed")
	ErrPartialFailure = errors.New("partial failure")
	ErrMigration      = errors.New("migration failed")
)

// Error carries a kind sentinel, a user-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func newError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports malformed input detected before any store mutation.
func Validation(message string) error {
	return newError(ErrValidation, message, nil)
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...), nil)
}

// NotFound reports a missing target id or group.
func NotFound(message string) error {
	return newError(ErrNotFound, message, nil)
}

// StorageWrite wraps a failed persistence call.
func StorageWrite(message string, err error) error {
	return newError(ErrStorageWrite, message, err)
}

// PartialFailure reports a multi-part upload that failed after some parts
// were already stored.
func PartialFailure(message string, err error) error {
	return newError(ErrPartialFailure, message, err)
}

// Migration wraps a failed self-healing write. It is only ever logged.
func Migration(message string, err error) error {
	return newError(ErrMigration, message, err)
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotConfigured):
		return "NOT_CONFIGURED"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrPartialFailure):
		return "PARTIAL_FAILURE"
	case errors.Is(err, ErrStorageWrite):
		return "STORAGE_WRITE_FAILURE"
	case errors.Is(err, ErrMigration):
		return "MIGRATION_FAILURE"
	default:
		return "INTERNAL"
	}
}

// Message returns the message shown to the caller for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
