package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Specific errors.
var (
	ErrSessionNotFound     = fmt.Errorf("session: %w", ErrNotFound)
	ErrItemNotFound        = fmt.Errorf("catalog item: %w", ErrNotFound)
	ErrSourceNotFound      = fmt.Errorf("geodatabase source: %w", ErrNotFound)
	ErrNoResult            = fmt.Errorf("result set: %w", ErrNotFound)
	ErrRowNotMaterialized  = fmt.Errorf("row not materialized: %w", ErrInvalidInput)
	ErrColumnOutOfRange    = fmt.Errorf("column out of range: %w", ErrInvalidInput)
	ErrSchemaMismatch      = fmt.Errorf("row does not match schema: %w", ErrInvalidInput)
	ErrEmptyQuery          = fmt.Errorf("empty query: %w", ErrInvalidInput)
	ErrEmptySelection      = fmt.Errorf("empty selection: %w", ErrInvalidInput)
	ErrInvalidGeodatabase  = fmt.Errorf("not a valid geodatabase: %w", ErrInvalidInput)
	ErrUnsupportedDialect  = fmt.Errorf("dialect: %w", ErrUnsupported)
	ErrUnknownFormat       = fmt.Errorf("export format: %w", ErrUnsupported)
	ErrNotConnected        = fmt.Errorf("not connected to any geodatabase: %w", ErrUnavailable)
	ErrClipboardNotAllowed = fmt.Errorf("clipboard: %w", ErrUnavailable)
	ErrStorageUnavailable  = fmt.Errorf("storage: %w", ErrUnavailable)
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// QueryError carries a failure reported by the query engine.
// Error returns the engine message unchanged so it can be shown to the user verbatim.
type QueryError struct {
	Query   string // Statement as sent to the engine
	Dialect string // Dialect the statement was executed with
	Err     error  // Engine error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// CursorError represents a failure while reading from an open result cursor.
type CursorError struct {
	Operation string // next, reset, count
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *CursorError) Error() string {
	return fmt.Sprintf("cursor error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *CursorError) Unwrap() error {
	return e.Err
}

// StorageError represents an error during storage operations.
type StorageError struct {
	Operation string // Operation that failed (download, list, etc.)
	Key       string // Object key
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage error during %s for %s: %v",
			e.Operation, e.Key, e.Err)
	}
	return fmt.Sprintf("storage error during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExportError represents an error while rendering or writing an export.
type ExportError struct {
	Format string // Export format name
	Path   string // Target file, if any
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("export %s to %s: %v", e.Format, e.Path, e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
