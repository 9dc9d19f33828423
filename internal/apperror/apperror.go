package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrLastItemProtected rejects removing the only remaining mode.
	ErrLastItemProtected = errors.New("last item protected")

	// Delivery failures. Only ErrClipboard aborts a delivery; the paste
	// errors are degraded successes because the clipboard already holds
	// the content.
	ErrClipboard           = errors.New("clipboard write failed")
	ErrPermissionDenied    = errors.New("paste permission denied")
	ErrUnsupportedPlatform = errors.New("paste unsupported on this platform")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// LastItemProtected is returned before any write happens when a caller tries
// to delete the only remaining item of a collection that must never be empty.
func LastItemProtected(resource string) *AppError {
	return &AppError{
		Err:     ErrLastItemProtected,
		Message: fmt.Sprintf("at least one %s must remain", resource),
	}
}

// Clipboard wraps a failed clipboard write. The cause is kept in the message
// only; callers match on ErrClipboard.
func Clipboard(cause error) *AppError {
	return &AppError{
		Err:     ErrClipboard,
		Message: fmt.Sprintf("could not write to the clipboard: %v", cause),
	}
}

// PermissionDenied reports that the platform refused the simulated paste
// keystroke (missing accessibility / input injection permission).
func PermissionDenied(message string) *AppError {
	return &AppError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// UnsupportedPlatform reports that paste simulation is not available here.
func UnsupportedPlatform(platform string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedPlatform,
		Message: fmt.Sprintf("automatic paste is not supported on %s", platform),
	}
}
