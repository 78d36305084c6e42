package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hrygo/divinecanvas/store"
)

// ErrorCode represents a specific error type returned by the HTTP API.
type ErrorCode string

const (
	// ErrCodeSessionNotFound indicates the referenced chat session does not exist.
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrCodeInvalidRequest indicates invalid input parameters.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeServiceUnavailable indicates the LLM service is not configured.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates any other failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// APIError represents a structured error for the HTTP API.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the code to an HTTP status.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// SessionNotFound creates a session not found error.
func SessionNotFound(id int64) *APIError {
	return &APIError{Code: ErrCodeSessionNotFound, Message: fmt.Sprintf("session %d not found", id)}
}

// InvalidRequest creates an invalid request error.
func InvalidRequest(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidRequest, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *APIError {
	return &APIError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *APIError {
	return &APIError{Code: code, Message: msg, Cause: cause}
}

// FromError converts any error into an APIError. Store sentinels map onto
// their codes; everything else is INTERNAL.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return Wrap(err, ErrCodeSessionNotFound, "session not found")
	case errors.Is(err, store.ErrParentMismatch):
		return Wrap(err, ErrCodeInvalidRequest, "parent message does not belong to the session")
	default:
		return Wrap(err, ErrCodeInternal, err.Error())
	}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
