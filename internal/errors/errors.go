package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for Wayfarer.
// It provides context for error handling, logging, and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_203_VECTOR_SEARCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Backend, ...).
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
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with *Error values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, keeping its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Configuration errors are
// fail-fast: they abort startup and are never deferred to request time.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// EmbeddingError creates an embedding-provider error.
func EmbeddingError(message string, cause error) *Error {
	return New(ErrCodeEmbedding, message, cause)
}

// SearchError creates a vector-backend search error. Callers must not
// mask it as "no results".
func SearchError(message string, cause error) *Error {
	return New(ErrCodeVectorSearch, message, cause)
}

// LexicalError creates a lexical-index validation error. The lexical
// index has no external dependency, so this is its only failure mode.
func LexicalError(message string) *Error {
	return New(ErrCodeEmptyQuery, message, nil)
}

// RetrievalError creates an error signalling that both retrieval branches
// failed.
func RetrievalError(message string, cause error) *Error {
	return New(ErrCodeRetrievalFailed, message, cause)
}

// GenerationError creates a model-call error after exhausted retries.
func GenerationError(message string, cause error) *Error {
	return New(ErrCodeGenerationFailed, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains an *Error with Retryable set.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// CodeOf returns the code of the first *Error in the chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
