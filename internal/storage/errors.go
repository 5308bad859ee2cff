// Package storage provides backend selection and shared error/metric
// types for the journal sync Store implementations.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitaliisemenov/journal-sync/internal/core"
)

// ErrInvalidProfile indicates invalid deployment profile configuration.
type ErrInvalidProfile struct {
	Profile string
	Cause   error
}

func (e *ErrInvalidProfile) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid deployment profile '%s': %v", e.Profile, e.Cause)
	}
	return fmt.Sprintf("invalid deployment profile: %s (must be 'lite' or 'standard')", e.Profile)
}

func (e *ErrInvalidProfile) Unwrap() error { return e.Cause }

// ErrStorageInitFailed indicates storage backend initialization failure.
type ErrStorageInitFailed struct {
	Backend string
	Profile string
	Cause   error
}

func (e *ErrStorageInitFailed) Error() string {
	return fmt.Sprintf("storage initialization failed (backend=%s, profile=%s): %v",
		e.Backend, e.Profile, e.Cause)
}

func (e *ErrStorageInitFailed) Unwrap() error { return e.Cause }

// ErrInvalidFilePath indicates an invalid SQLite file path.
type ErrInvalidFilePath struct {
	Path   string
	Reason string
}

func (e *ErrInvalidFilePath) Error() string {
	return fmt.Sprintf("invalid file path '%s': %s", e.Path, e.Reason)
}

// ErrConnectionFailed indicates a storage connection failure.
type ErrConnectionFailed struct {
	Backend string
	Cause   error
}

func (e *ErrConnectionFailed) Error() string {
	return fmt.Sprintf("storage connection failed (%s): %v", e.Backend, e.Cause)
}

func (e *ErrConnectionFailed) Unwrap() error { return e.Cause }

// ErrSchemaInitFailed indicates database schema initialization failure.
type ErrSchemaInitFailed struct {
	Backend string
	Table   string
	Cause   error
}

func (e *ErrSchemaInitFailed) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("schema initialization failed (%s, table=%s): %v",
			e.Backend, e.Table, e.Cause)
	}
	return fmt.Sprintf("schema initialization failed (%s): %v", e.Backend, e.Cause)
}

func (e *ErrSchemaInitFailed) Unwrap() error { return e.Cause }

// Error type classification for metrics.
const (
	ErrorTypeConnection = "connection"
	ErrorTypeTimeout     = "timeout"
	ErrorTypeNotFound    = "not_found"
	ErrorTypeValidation  = "validation"
	ErrorTypeSchema      = "schema"
	ErrorTypeUnknown     = "unknown"
)

// ClassifyError classifies an error for metrics labeling.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConnectionError(err):
		return ErrorTypeConnection
	case IsTimeoutError(err):
		return ErrorTypeTimeout
	case IsNotFoundError(err):
		return ErrorTypeNotFound
	case IsValidationError(err):
		return ErrorTypeValidation
	case IsSchemaError(err):
		return ErrorTypeSchema
	default:
		return ErrorTypeUnknown
	}
}

func IsConnectionError(err error) bool {
	_, ok := err.(*ErrConnectionFailed)
	return ok
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func IsNotFoundError(err error) bool {
	var trackerErr core.ErrTrackerNotFound
	var entryErr core.ErrEntryNotFound
	return errors.As(err, &trackerErr) || errors.As(err, &entryErr)
}

func IsValidationError(err error) bool {
	if _, ok := err.(*ErrInvalidFilePath); ok {
		return true
	}
	_, ok := err.(*ErrInvalidProfile)
	return ok
}

func IsSchemaError(err error) bool {
	_, ok := err.(*ErrSchemaInitFailed)
	return ok
}
