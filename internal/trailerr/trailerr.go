// Package trailerr defines the stable error taxonomy for the activity engine.
// Validation and not-found failures are surfaced to callers; upstream fetch
// failures abort the current snapshot build; partial per-row data loss is
// never represented as an error at all.
package trailerr

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ValidationFailed indicates malformed input or a bad parameter range
	ValidationFailed ErrorCode = "VALIDATION_FAILED"
	// TraversalDenied indicates a path tried to escape the project root
	TraversalDenied ErrorCode = "TRAVERSAL_DENIED"
	// NotFound indicates a file is not tracked in any snapshot
	NotFound ErrorCode = "NOT_FOUND"
	// UpstreamFetchFailed indicates the row-fetch contract failed
	UpstreamFetchFailed ErrorCode = "UPSTREAM_FETCH_FAILED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// TrailError represents an engine error with a stable code and optional details
type TrailError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // underlying error (not exported to JSON)
}

// New creates a new TrailError
func New(code ErrorCode, message string, cause error) *TrailError {
	return &TrailError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *TrailError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TrailError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *TrailError) WithDetails(details interface{}) *TrailError {
	e.Details = details
	return e
}

// Validation creates a VALIDATION_FAILED error
func Validation(message string) *TrailError {
	return New(ValidationFailed, message, nil)
}

// Traversal creates a TRAVERSAL_DENIED error for the given raw path
func Traversal(rawPath string) *TrailError {
	return New(TraversalDenied, "path escapes project root", nil).WithDetails(map[string]string{"path": rawPath})
}

// NotFoundf creates a NOT_FOUND error
func NotFoundf(format string, args ...interface{}) *TrailError {
	return New(NotFound, fmt.Sprintf(format, args...), nil)
}

// Upstream wraps a row-fetch contract failure
func Upstream(message string, cause error) *TrailError {
	return New(UpstreamFetchFailed, message, cause)
}

// CodeOf returns the error code carried by err, or InternalError for
// errors that did not originate in this package.
func CodeOf(err error) ErrorCode {
	var te *TrailError
	if errors.As(err, &te) {
		return te.Code
	}
	return InternalError
}

// IsNotFound reports whether err carries the NOT_FOUND code
func IsNotFound(err error) bool {
	return CodeOf(err) == NotFound
}

// IsValidation reports whether err carries a caller-input failure code
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code == ValidationFailed || code == TraversalDenied
}
