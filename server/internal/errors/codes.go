package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for study operations.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates invalid input parameters.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the resource does not exist or is not visible to the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a concurrent modification.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodePreconditionFailed indicates the resource is in the wrong state.
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// StudyError represents a structured error for study operations.
type StudyError struct {
	Code    ErrorCode
	Message string
	// Field names the offending input for INVALID_INPUT.
	Field   string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StudyError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *StudyError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *StudyError) WithContext(key string, value any) *StudyError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus returns the response status for the error's code.
func (e *StudyError) HTTPStatus() int {
	return HTTPStatus(e.Code)
}

// HTTPStatus maps an error code to an HTTP status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for common error types.

// InvalidInput creates an invalid input error for field.
func InvalidInput(field, msg string) *StudyError {
	return &StudyError{Code: ErrCodeInvalidInput, Field: field, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *StudyError {
	return &StudyError{Code: ErrCodeNotFound, Message: msg}
}

// Conflict creates a conflict error.
func Conflict(msg string, cause error) *StudyError {
	return &StudyError{Code: ErrCodeConflict, Message: msg, Cause: cause}
}

// PreconditionFailed creates a precondition failed error.
func PreconditionFailed(msg string, cause error) *StudyError {
	return &StudyError{Code: ErrCodePreconditionFailed, Message: msg, Cause: cause}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *StudyError {
	return &StudyError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *StudyError {
	return &StudyError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *StudyError {
	return &StudyError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *StudyError {
	return &StudyError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps, has the given code.
func IsCode(err error, code ErrorCode) bool {
	var studyErr *StudyError
	if stderrors.As(err, &studyErr) {
		return studyErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a StudyError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var studyErr *StudyError
	if stderrors.As(err, &studyErr) {
		return studyErr.Code
	}
	return defaultCode
}
