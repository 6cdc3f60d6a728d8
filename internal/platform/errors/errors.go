package errors

import (
	"errors"
	"net/http"
)

// Domain is the error domain for Till errors.
const Domain = "github.com/tillworks/till"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs/telemetry)
	Metadata map[string]string // Additional context for rendering
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the domain code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// IsValidation reports whether the error is a pre-storage validation failure.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case CodeOrderEmptyLines, CodeOrderInvalidQuantity, CodeOrderInvalidUnitPrice,
		CodeOrderEmptyProductID, CodeInventoryEmptyProductID,
		CodeProductEmptyID, CodeProductEmptyName:
		return true
	}
	return false
}

// HTTPStatus maps a domain error to an HTTP response status.
func HTTPStatus(err error) int {
	code := CodeOf(err)
	switch {
	case code == CodeNotFound:
		return http.StatusNotFound
	case code == CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case code == CodeBadRequest:
		return http.StatusBadRequest
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
