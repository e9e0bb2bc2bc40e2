package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"

	// Terminal specific codes
	CodeLocalGuard        = "LOCAL_GUARD_VIOLATION"
	CodeUnresolvedScan    = "UNRESOLVED_SCAN"
	CodeUpstreamError     = "UPSTREAM_ERROR"
	CodeNetworkError      = "NETWORK_ERROR"
	CodeCompletionBlocked = "COMPLETION_BLOCKED"
	CodeSessionClosed     = "SESSION_CLOSED"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges details into the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// ErrLocalGuard reports a mutation refused on the terminal before reaching the server
func ErrLocalGuard(message string) *AppError {
	return NewAppError(CodeLocalGuard, message, http.StatusUnprocessableEntity)
}

// ErrUnresolvedScan reports a barcode that could be resolved neither live nor from cache
func ErrUnresolvedScan(barcode string) *AppError {
	return NewAppError(CodeUnresolvedScan, "barcode could not be resolved", http.StatusNotFound).
		WithDetail("barcode", barcode)
}

// ErrNetwork reports an unreachable pick server
func ErrNetwork(service string) *AppError {
	return NewAppError(CodeNetworkError, fmt.Sprintf("%s is unreachable", service), http.StatusServiceUnavailable)
}

// ErrUpstream reports an error response from the pick server
func ErrUpstream(upstreamStatus int, message string) *AppError {
	if message == "" {
		message = http.StatusText(upstreamStatus)
	}
	return NewAppError(CodeUpstreamError, message, http.StatusBadGateway).
		WithDetail("upstreamStatus", fmt.Sprintf("%d", upstreamStatus))
}

// ErrCompletionBlocked reports a completion request the gate refused
func ErrCompletionBlocked(message string) *AppError {
	return NewAppError(CodeCompletionBlocked, message, http.StatusConflict)
}

// ErrSessionClosed reports a request against a discarded pick session
func ErrSessionClosed() *AppError {
	return NewAppError(CodeSessionClosed, "pick session is closed", http.StatusGone)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}
