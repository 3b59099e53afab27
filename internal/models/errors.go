package models

import (
	"fmt"
	"net/http"
)

// Error codes used in logs
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "CONFLICT"
	CodeAuth       = "AUTH_ERROR"
	CodeForbidden  = "FORBIDDEN"
	CodeNotFound   = "NOT_FOUND"
	CodeStore      = "STORE_ERROR"
)

// AppError is the single error type handlers return. It carries the HTTP
// status and the shape of the JSON body: either a field-keyed map or one
// message under Key.
type AppError struct {
	Code    string
	Status  int
	Key     string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" && len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v", e.Code, e.Fields)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.Status
}

// Body returns the JSON body for the error
func (e *AppError) Body() map[string]string {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	key := e.Key
	if key == "" {
		key = "error"
	}
	return map[string]string{key: e.Message}
}

func NewValidationError(fields map[string]string) *AppError {
	return &AppError{
		Code:   CodeValidation,
		Status: http.StatusBadRequest,
		Fields: fields,
	}
}

// NewBadRequestError reports a malformed request that is not tied to a field
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

func NewConflictError(field, message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Status:  http.StatusConflict,
		Key:     field,
		Message: message,
	}
}

// NewAuthError covers credential failures; status is 400 for an email
// already in use and 403 for wrong credentials.
func NewAuthError(status int, key, message string) *AppError {
	return &AppError{
		Code:    CodeAuth,
		Status:  status,
		Key:     key,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: message,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: resource + " not found",
	}
}

// NewStoreError wraps a store, auth or storage failure. The underlying
// message is passed through to the client.
func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    CodeStore,
		Status:  http.StatusInternalServerError,
		Message: err.Error(),
		Err:     err,
	}
}
