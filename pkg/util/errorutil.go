package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors across services and the HTTP
// layer. Code is a stable machine-readable identifier; HTTPStatus is the
// response status the transport layer maps it to.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewNotFound names the missing resource in the message; Details carries any
// identifiers the caller wants echoed back.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewServiceUnavailable flags features with no safe local substitute, such as
// AI reply assistance when the provider is unreachable.
func NewServiceUnavailable(message string) error {
	return NewDomainError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, nil)
}

// NewInternalError hides the cause from the response message while keeping it
// reachable through Unwrap for logging.
func NewInternalError(err error) error {
	internal := NewDomainError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError, nil)
	internal.Err = err
	return internal
}

// ToDomainError returns err's DomainError if it carries one anywhere in its
// chain, otherwise wraps it as an internal error. Nil passes through.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	wrapped := NewDomainError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError, nil)
	wrapped.Err = err
	return wrapped
}

func MapError(err error) error {
	return ToDomainError(err)
}
