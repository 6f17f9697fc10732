package types

import "fmt"

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Lookup / validation error codes
const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrContentNotFound ErrorCode = "CONTENT_NOT_FOUND"
	ErrCycleNotFound   ErrorCode = "CYCLE_NOT_FOUND"
	ErrPersonaNotFound ErrorCode = "PERSONA_NOT_FOUND"
)

// Refinement-cycle error codes
const (
	ErrEvaluationFailure   ErrorCode = "EVALUATION_FAILURE"
	ErrNoFeedbackCollected ErrorCode = "NO_FEEDBACK_COLLECTED"
	ErrMissingAggregate    ErrorCode = "MISSING_AGGREGATE"
	ErrRevisionFailure     ErrorCode = "REVISION_FAILURE"
	ErrInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrMaxCyclesReached    ErrorCode = "MAX_CYCLES_REACHED"
)

// Provider error codes
const (
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
