// Package errors provides structured error types for devscout.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the
//     discovery pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// Two concrete types carry upstream failures out of the registry and
// profile clients: [RateLimitError] for quota exhaustion (HTTP 403/429) and
// [RegistryError] for every other non-success response. Callers tell them
// apart with errors.As or the [IsRateLimit] helper; the distinction matters
// because a rate limit has a specific remediation (sign in for a higher
// quota) while a registry failure does not.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid username: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidRegistry Code = "INVALID_REGISTRY"
	ErrCodeInvalidMode     Code = "INVALID_MODE"
	ErrCodeInvalidStatus   Code = "INVALID_STATUS"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Upstream errors. RATE_LIMIT and FETCH_FAILED are the two values the
	// discovery session surfaces to its presentation layer.
	ErrCodeRateLimit   Code = "RATE_LIMIT"
	ErrCodeFetchFailed Code = "FETCH_FAILED"
	ErrCodeNetwork     Code = "NETWORK_ERROR"

	// Authentication errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"

	// Concurrency errors
	ErrCodeBusy Code = "BUSY"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for a coded error with a matching code.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// *Error, *RateLimitError and *RegistryError are recognized anywhere in the
// chain; the outermost match wins. Returns empty string otherwise.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case *RateLimitError:
			return ErrCodeRateLimit
		case *RegistryError:
			return ErrCodeFetchFailed
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return "GitHub or registry rate limit reached; sign in for higher limits"
	}
	var re *RegistryError
	if errors.As(err, &re) {
		return "Failed to fetch results. Please try again."
	}
	return err.Error()
}

// RateLimitError is returned when an upstream signals quota exhaustion.
type RateLimitError struct {
	Status     int    // HTTP status that carried the signal (403 or 429)
	RetryAfter int    // Seconds to wait before retrying, 0 when unknown
	Message    string // Upstream message, if any
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d): retry after %d seconds", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d)", e.Status)
}

// Code returns the error code for this error type.
func (e *RateLimitError) Code() Code {
	return ErrCodeRateLimit
}

// RegistryError is a generic non-success response from a registry or search
// endpoint. Status is 0 when the request never produced a response.
type RegistryError struct {
	Status int
	URL    string
	Cause  error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	switch {
	case e.Status == 0 && e.Cause != nil:
		return fmt.Sprintf("registry request failed: %v", e.Cause)
	case e.Status == 0:
		return "registry request failed"
	default:
		return fmt.Sprintf("registry returned status %d: %s", e.Status, e.URL)
	}
}

// Unwrap returns the underlying cause.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// Code returns the error code for this error type.
func (e *RegistryError) Code() Code {
	return ErrCodeFetchFailed
}

// IsRateLimit reports whether err carries a *RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
