// Tests live in the same package so they can reach AppError's fields
// directly. Run with: go test ./internal/apperror/ -v
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// allSentinels lists every sentinel so each constructor can be checked
// against all of them: it must match its own and nothing else.
var allSentinels = []error{
	ErrNotFound,
	ErrValidation,
	ErrConflict,
	ErrForbidden,
	ErrLastItemProtected,
	ErrClipboard,
	ErrPermissionDenied,
	ErrUnsupportedPlatform,
}

// =========================================================================
// MATCHING THROUGH WRAPS
// =========================================================================

// Services and repositories wrap errors with "doing x: %w" before they
// reach a handler, so errors.Is has to see through at least two layers.
func TestSentinelMatchingThroughWraps(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want error
	}{
		{"snippet not found", NotFound("snippet", "cv37rs3pp9olc6atsptg"), ErrNotFound},
		{"blank snippet name", ValidationFailed("name", "name is required"), ErrValidation},
		{"duplicate mode", Conflict("mode", "work"), ErrConflict},
		{"surface not allowed", Forbidden("token is for another surface"), ErrForbidden},
		{"deleting the last mode", LastItemProtected("mode"), ErrLastItemProtected},
		{"clipboard unavailable", Clipboard(errors.New("no display")), ErrClipboard},
		{"accessibility denied", PermissionDenied("not allowed to send keystrokes"), ErrPermissionDenied},
		{"no paste on linux", UnsupportedPlatform("linux"), ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("handler: %w", fmt.Errorf("repository: deleting mode: %w", tt.err))

			for _, sentinel := range allSentinels {
				got := errors.Is(wrapped, sentinel)
				if want := sentinel == tt.want; got != want {
					t.Errorf("errors.Is(%v, %v) = %v, want %v", wrapped, sentinel, got, want)
				}
			}

			var appErr *AppError
			if !errors.As(wrapped, &appErr) || appErr != tt.err {
				t.Errorf("errors.As did not recover the original *AppError")
			}
		})
	}
}

// =========================================================================
// MESSAGES
// =========================================================================

// Overlays show Error() verbatim, so these strings are user-facing.
func TestMessages(t *testing.T) {
	tests := []struct {
		err  *AppError
		want string
	}{
		{NotFound("snippet", "abc123"), "snippet not found with id abc123"},
		{Conflict("mode", "work"), "mode conflict with id work"},
		{ValidationFailed("name", "name must be at most 10 characters"), "name must be at most 10 characters"},
		{LastItemProtected("mode"), "at least one mode must remain"},
		{UnsupportedPlatform("windows"), "automatic paste is not supported on windows"},
		{Clipboard(errors.New("xclip not found")), "could not write to the clipboard: xclip not found"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestValidationFieldIsKept(t *testing.T) {
	err := ValidationFailed("content", "content is required")
	if err.Field != "content" {
		t.Errorf("Field = %q, want content", err.Field)
	}

	// Only validation errors point at a field.
	if f := NotFound("snippet", "x").Field; f != "" {
		t.Errorf("NotFound Field = %q, want empty", f)
	}
}
