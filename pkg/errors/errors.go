package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates malformed input to an operation
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeFetch indicates a page could not be fetched or returned a non-2xx status
	ErrorTypeFetch ErrorType = "FETCH"

	// ErrorTypeEngine indicates a single AI engine attempt failed
	ErrorTypeEngine ErrorType = "ENGINE"

	// ErrorTypeProbe indicates a correction re-probe failed
	ErrorTypeProbe ErrorType = "PROBE"

	// ErrorTypeCooldown indicates a claim is still inside its verification cooldown
	ErrorTypeCooldown ErrorType = "COOLDOWN"
)

// AppError represents an application error
type AppError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewFetchError creates a page fetch error. statusCode is 0 when no response was received.
func NewFetchError(url string, statusCode int, err error) *AppError {
	msg := fmt.Sprintf("fetch %s failed", url)
	if statusCode > 0 {
		msg = fmt.Sprintf("fetch %s returned status %d", url, statusCode)
	}
	return &AppError{
		Type:       ErrorTypeFetch,
		Message:    msg,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewEngineError creates an error for one failed engine attempt
func NewEngineError(engine string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeEngine,
		Message: fmt.Sprintf("engine %s attempt failed", engine),
		Err:     err,
	}
}

// NewProbeError creates a correction re-probe error
func NewProbeError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeProbe,
		Message: message,
		Err:     err,
	}
}

// NewCooldownError creates an error for claims still inside their cooldown window
func NewCooldownError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeCooldown,
		Message: message,
	}
}

// IsType reports whether err (or anything it wraps) is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// StatusCode returns the HTTP status carried by a fetch error, or 0
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}
