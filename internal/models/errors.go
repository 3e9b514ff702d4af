package models

import "net/http"

// ErrorKind classifies application errors for HTTP mapping
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindState      ErrorKind = "invalid_state"
	ErrorKindGateway    ErrorKind = "gateway"
	ErrorKindInternal   ErrorKind = "internal"
)

// AppError is the error type surfaced by services to handlers.
// Message is safe to return to clients; internal detail stays in the
// wrapped error.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case ErrorKindValidation, ErrorKindAuth, ErrorKindState:
		return http.StatusBadRequest
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindConflict:
		return http.StatusConflict
	case ErrorKindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return &AppError{Kind: ErrorKindValidation, Code: code, Message: message}
}

// NewAuthError creates an authentication error for webhook signature failures
func NewAuthError(code, message string) *AppError {
	return &AppError{Kind: ErrorKindAuth, Code: code, Message: message}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(code, message string) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Code: code, Message: message}
}

// NewConflictError creates a conflict error
func NewConflictError(code, message string) *AppError {
	return &AppError{Kind: ErrorKindConflict, Code: code, Message: message}
}

// NewStateError creates an invalid-state error
func NewStateError(code, message string) *AppError {
	return &AppError{Kind: ErrorKindState, Code: code, Message: message}
}

// NewGatewayError creates a gateway error wrapping the upstream failure
func NewGatewayError(code, message string, err error) *AppError {
	return &AppError{Kind: ErrorKindGateway, Code: code, Message: message, Err: err}
}

// NewInternalError creates an internal error wrapping the underlying failure
func NewInternalError(code, message string, err error) *AppError {
	return &AppError{Kind: ErrorKindInternal, Code: code, Message: message, Err: err}
}
