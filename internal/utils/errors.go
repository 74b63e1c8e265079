package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error that carries the HTTP status and the message shown to the client.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// NewAPIError creates an APIError.
func NewAPIError(status int, message string) *APIError {
	return &APIError{
		Status:  status,
		Message: message,
	}
}

func BadRequest(message string) *APIError   { return NewAPIError(http.StatusBadRequest, message) }
func Unauthorized(message string) *APIError { return NewAPIError(http.StatusUnauthorized, message) }
func NotFound(message string) *APIError     { return NewAPIError(http.StatusNotFound, message) }
func Internal(message string) *APIError     { return NewAPIError(http.StatusInternalServerError, message) }

// AsAPIError unwraps err to an APIError if it contains one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
