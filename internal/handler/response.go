package handler

// RESPONSE HELPERS:
// Every endpoint answers through writeJSON/writeError so clients see one
// error shape regardless of the status code:
//
//	{"error": "not_found", "message": "snippet not found with id abc123", "field": ""}
//
// The picker overlays show Message as-is, so it is always user-readable.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-picker/internal/apperror"
)

// maxBodySize caps request bodies. Imports are plain text files of
// snippets; a megabyte is thousands of them.
const maxBodySize = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable
	Field   string `json:"field,omitempty"` // offending input field, for validation errors
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps an application error to its HTTP status and error kind.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrLastItemProtected):
		return http.StatusConflict, "last_item_protected"
	case errors.Is(err, apperror.ErrClipboard):
		return http.StatusBadGateway, "clipboard_error"
	case errors.Is(err, apperror.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, apperror.ErrUnsupportedPlatform):
		return http.StatusNotImplemented, "unsupported_platform"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError sends err in the standard shape. Errors that are not
// *apperror.AppError become an opaque 500: their text may carry file paths
// or SQL.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := errorStatus(err)
	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected so a
// typo ("contents") fails loudly instead of saving an empty snippet.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// logFailure logs unexpected errors. Expected ones (bad input, unknown ids)
// are the client's business and stay out of the error log.
func logFailure(logger *slog.Logger, msg string, err error) {
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, slog.String("error", err.Error()))
	}
}
