package errors

import (
	stderrors "errors"
	"fmt"
)

// FuseError is the structured error type for docfuse.
// It carries enough context to decide whether an operation should be
// retried, aborted, or surfaced to the caller as-is.
type FuseError struct {
	// Code is the unique error code (e.g., "ERR_104_DIMENSION_MISMATCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Provider, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *FuseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FuseError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with FuseError.
func (e *FuseError) Is(target error) bool {
	if t, ok := target.(*FuseError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FuseError) WithDetail(key, value string) *FuseError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new FuseError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FuseError {
	return &FuseError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a FuseError from an existing error.
// The error's message becomes the FuseError message.
func Wrap(code string, err error) *FuseError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Fatal, never retried.
func ConfigError(message string, cause error) *FuseError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// DimensionError creates a fatal embedding-dimension mismatch error.
func DimensionError(expected, got int) *FuseError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: expected %d, got %d (reset required before changing providers)", expected, got),
		nil)
}

// StoreError creates a store-related error. Retryable per chunk during ingest.
func StoreError(message string, cause error) *FuseError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// ProviderError creates an embedding-provider error. Retryable during ingest,
// fatal to the in-flight query on the query path.
func ProviderError(message string, cause error) *FuseError {
	return New(ErrCodeProviderUnavailable, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *FuseError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFound creates a chunk-not-found error for the given id.
// Not an operational failure; returned to the caller as-is.
func NotFound(chunkID string) *FuseError {
	e := New(ErrCodeChunkNotFound, fmt.Sprintf("chunk not found: %s", chunkID), nil)
	return e.WithDetail("chunk_id", chunkID)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var fe *FuseError
	if stderrors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var fe *FuseError
	if stderrors.As(err, &fe) {
		return fe.Severity == SeverityFatal
	}
	return false
}

// IsNotFound reports whether err is a chunk-not-found error.
func IsNotFound(err error) bool {
	var fe *FuseError
	if stderrors.As(err, &fe) {
		return fe.Code == ErrCodeChunkNotFound
	}
	return false
}

// GetCode extracts the error code from a FuseError.
// Returns empty string if not a FuseError.
func GetCode(err error) string {
	var fe *FuseError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ""
}
