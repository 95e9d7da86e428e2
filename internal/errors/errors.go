// Package errors provides shared error types used across the fetch and cache layers.
// It exists so the retry policy in the fetcher and the cache manager agree on
// which failures are worth another attempt.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// NonRetryableError represents an error that should not be retried.
// Operations that encounter this error type should fail immediately
// without retry attempts.
type NonRetryableError struct {
	message string
	cause   error
}

// Error implements the error interface.
func (e *NonRetryableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *NonRetryableError) Unwrap() error {
	return e.cause
}

// Is checks if the target error is a NonRetryableError.
func (e *NonRetryableError) Is(target error) bool {
	_, ok := target.(*NonRetryableError)
	return ok
}

// NewNonRetryableError creates a new non-retryable error with a message and optional cause.
func NewNonRetryableError(message string, cause error) error {
	return &NonRetryableError{
		message: message,
		cause:   cause,
	}
}

// IsNonRetryable checks if an error is non-retryable.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var nonRetryableErr *NonRetryableError
	return errors.As(err, &nonRetryableErr)
}

// HTTPStatusError is returned when the CDN answers with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether another attempt could succeed. Client errors are
// permanent except for 408 and 429.
func (e *HTTPStatusError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return false
	default:
		return true
	}
}

// NewHTTPStatusError builds the status error, wrapped as non-retryable when
// the status code is permanent.
func NewHTTPStatusError(url string, statusCode int) error {
	statusErr := &HTTPStatusError{URL: url, StatusCode: statusCode}
	if !statusErr.Retryable() {
		return NewNonRetryableError("permanent HTTP status", statusErr)
	}
	return statusErr
}

// StatusCode extracts the HTTP status from err, or 0 if none is present.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// Sentinel errors for common non-retryable conditions.
var (
	// ErrBodyTooLarge indicates the response exceeded the configured body limit.
	ErrBodyTooLarge = &NonRetryableError{
		message: "response body exceeds size limit",
		cause:   nil,
	}

	// ErrInvalidURL indicates the asset URL cannot be parsed or has no host.
	ErrInvalidURL = &NonRetryableError{
		message: "invalid asset URL",
		cause:   nil,
	}
)
