package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// FocusRecorder remembers which app was frontmost when a picker opened.
type FocusRecorder interface {
	Record(ctx context.Context) error
	Previous() string
}

// FocusHandler lets a picker surface announce that it is about to show, so
// a later native delivery can re-activate the app the user was typing in.
type FocusHandler struct {
	focus  FocusRecorder
	logger *slog.Logger
}

func NewFocusHandler(focus FocusRecorder, logger *slog.Logger) *FocusHandler {
	return &FocusHandler{focus: focus, logger: logger}
}

type pickerShownResponse struct {
	Previous string `json:"previous"`
}

// HandlePickerShown records the frontmost app.
//
// HTTP: POST /api/picker/shown
// RESPONSE: {"previous": "com.google.Chrome"}
//
// Call it before the picker window takes focus. A failed reading keeps the
// last recorded app; the picker can still open, so it is logged, not
// returned.
func (h *FocusHandler) HandlePickerShown(w http.ResponseWriter, r *http.Request) {
	if err := h.focus.Record(r.Context()); err != nil {
		h.logger.Warn("reading frontmost app failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, pickerShownResponse{Previous: h.focus.Previous()})
}
