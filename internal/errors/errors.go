// Package errors defines the error envelope returned by every API endpoint.
package errors

import (
	"fmt"
)

// APIError is the JSON error body. Status is the HTTP status and is not serialised.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails attaches a details string and returns the same error.
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// NotFound creates a NOT_FOUND error for the named resource
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

// Conflict reports a resource that exists already or is in the wrong state
func Conflict(resource string) *APIError {
	return newError(ErrConflict, fmt.Sprintf("%s already exists or is in an invalid state", resource))
}

// ValidationError reports a bad value for a single request field
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

func AlreadyExists(resource string) *APIError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

// ServiceUnavailable is used when an optional backend (S3, Elasticsearch, Redis) is not configured
func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}
