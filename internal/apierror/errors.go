package apierror

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports bad user input, either caught locally (password
// mismatch, empty title) or returned by the API as field-level errors.
type ValidationError struct {
	Field   string              // Field the message refers to, if any
	Message string              // User-presentable message
	Fields  map[string][]string // Raw field errors from the API, if any
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthenticationError is returned when credentials are rejected. Message is
// safe to show to the user; Err keeps the underlying transport failure.
type AuthenticationError struct {
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// SessionExpiredError is returned when a refresh attempt failed and the
// session has been cleared. Callers should send the user back to login.
type SessionExpiredError struct {
	Err error
}

// Error implements the error interface
func (e *SessionExpiredError) Error() string {
	if e.Err == nil {
		return "session expired, please login again"
	}
	return fmt.Sprintf("session expired, please login again: %v", e.Err)
}

// Unwrap returns the refresh failure
func (e *SessionExpiredError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a transport failure (DNS, connection refused, timeout).
type NetworkError struct {
	Op  string // e.g. "GET /tasks/"
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned for a stale resource id.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, body)
}

// IsSessionExpired reports whether err is or wraps a SessionExpiredError
func IsSessionExpired(err error) bool {
	var target *SessionExpiredError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// UserMessage returns the text to show an end user for err. Typed errors carry
// their own message; anything else falls back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var sessionErr *SessionExpiredError
	if errors.As(err, &sessionErr) {
		return "Session expired. Please login again."
	}

	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var networkErr *NetworkError
	if errors.As(err, &networkErr) {
		return "Could not reach the task server. Check your connection and try again."
	}

	return err.Error()
}
