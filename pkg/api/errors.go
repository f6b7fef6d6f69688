package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeSessionNotFound ErrorType = "session_not_found"
	ErrorTypeFileNotFound    ErrorType = "file_not_found"
	ErrorTypeTransport       ErrorType = "transport_error"
)

// APIError represents a structured API error with type, param, and message.
// Transport errors additionally carry the underlying cause, which is
// surfaced unmodified through Unwrap.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause of a transport error, or nil.
func (e *APIError) Unwrap() error {
	return e.cause
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level
// error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewSessionNotFoundError creates an APIError for an unknown or closed session.
func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Type:    ErrorTypeSessionNotFound,
		Param:   "session_id",
		Message: fmt.Sprintf("session %q not found", sessionID),
	}
}

// NewFileNotFoundError creates an APIError for a path with no uploaded
// content in the referenced session.
func NewFileNotFoundError(remotePath, sessionID string) *APIError {
	return &APIError{
		Type:    ErrorTypeFileNotFound,
		Param:   "remote_path",
		Message: fmt.Sprintf("file %q not found in session %q", remotePath, sessionID),
	}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewServerError creates an APIError for internal backend errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewTransportError wraps a network or backend failure. The cause is kept
// intact so callers can inspect it with errors.Is/As; the SDK never retries
// transport failures on the caller's behalf.
func NewTransportError(cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeTransport,
		Message: cause.Error(),
		cause:   cause,
	}
}

// IsSessionNotFound reports whether err is an APIError of type session_not_found.
func IsSessionNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeSessionNotFound
}

// IsFileNotFound reports whether err is an APIError of type file_not_found.
func IsFileNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeFileNotFound
}

// IsTransport reports whether err is an APIError of type transport_error.
func IsTransport(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeTransport
}
