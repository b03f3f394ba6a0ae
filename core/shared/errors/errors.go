package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Auth errors
	ErrCodeMissingAuthHeader   ErrorCode = "MISSING_AUTH_HEADER"
	ErrCodeMalformedAuthHeader ErrorCode = "MALFORMED_AUTH_HEADER"
	ErrCodeInvalidCredential   ErrorCode = "INVALID_CREDENTIAL"

	// Request errors
	ErrCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingQuery    ErrorCode = "MISSING_QUERY"

	// Backend and streaming errors
	ErrCodeBackendError     ErrorCode = "BACKEND_ERROR"
	ErrCodeSubscriberLimit  ErrorCode = "SUBSCRIBER_LIMIT"
	ErrCodeStreamWriteError ErrorCode = "STREAM_WRITE_ERROR"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int // HTTP status code
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  getHTTPStatus(code),
	}
}

// Backend wraps a store failure. The message is the underlying error text so
// callers never see driver-specific error shapes.
func Backend(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == ErrCodeBackendError {
		return appErr
	}
	return NewAppError(ErrCodeBackendError, err.Error(), err)
}

// Unavailable wraps a failure to reach the store. The client only sees a
// generic message; err keeps the address and driver detail for logs.
func Unavailable(err error) *AppError {
	return NewAppError(ErrCodeBackendError, "FalkorDB unavailable", err)
}

// Validation builds a 400 error with message.
func Validation(message string) *AppError {
	return NewAppError(ErrCodeValidationError, message, nil)
}

func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeMissingAuthHeader, ErrCodeMalformedAuthHeader, ErrCodeInvalidCredential:
		return http.StatusUnauthorized
	case ErrCodeValidationError, ErrCodeMissingQuery:
		return http.StatusBadRequest
	case ErrCodeSubscriberLimit:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, 500 for unknown errors.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// IsAuthError checks if the error is an authentication rejection
func IsAuthError(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Status == http.StatusUnauthorized
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	appErr, ok := As(err)
	return ok && (appErr.Code == ErrCodeValidationError || appErr.Code == ErrCodeMissingQuery)
}

// IsBackendError checks if the error came from the graph store
func IsBackendError(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeBackendError
}
