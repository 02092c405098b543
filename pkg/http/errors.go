package http

import (
	"fmt"
	"net/http"
)

// AppError carries the public code and HTTP status a handler failure maps to.
// Err is kept for logs and never serialized.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithError returns a copy of e wrapping cause.
func (e *AppError) WithError(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

// NewAppError builds an AppError for status.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func BadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, "ERR_BAD_REQUEST", message)
}

// ConflictError reports work that cannot start because other work holds the resource.
func ConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, "ERR_CONFLICT", message)
}

// BadGatewayError reports a failed call to an upstream service.
func BadGatewayError(message string) *AppError {
	return NewAppError(http.StatusBadGateway, "ERR_UPSTREAM", message)
}

func InternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, "ERR_INTERNAL", message)
}
