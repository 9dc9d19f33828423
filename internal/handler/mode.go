package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/service"
)

// ModeHandler serves the mode list and the current-mode pointer.
type ModeHandler struct {
	modes  *service.ModeService
	logger *slog.Logger
}

func NewModeHandler(modes *service.ModeService, logger *slog.Logger) *ModeHandler {
	return &ModeHandler{modes: modes, logger: logger}
}

type modeRequest struct {
	Name string `json:"name"`
}

type currentModeRequest struct {
	ID string `json:"id"`
}

type cycleRequest struct {
	Direction int `json:"direction"`
}

func (h *ModeHandler) fail(w http.ResponseWriter, msg string, err error) {
	logFailure(h.logger, msg, err)
	writeError(w, err)
}

// HandleList returns every mode in display order.
//
// HTTP: GET /api/modes
func (h *ModeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	modes, err := h.modes.List(r.Context())
	if err != nil {
		h.fail(w, "listing modes failed", err)
		return
	}
	writeJSON(w, http.StatusOK, modes)
}

// HandleCreate adds a mode and makes it current.
//
// HTTP: POST /api/modes  {"name": "Work"}
func (h *ModeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := h.modes.Create(r.Context(), req.Name)
	if err != nil {
		h.fail(w, "creating mode failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, mode)
}

// HandleRename renames a mode.
//
// HTTP: PUT /api/modes/{id}  {"name": "Personal"}
func (h *ModeHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := h.modes.Rename(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, "renaming mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, mode)
}

// HandleDelete removes a mode and its snippets. The response is the mode
// that is current afterwards.
//
// HTTP: DELETE /api/modes/{id}
func (h *ModeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	current, err := h.modes.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "deleting mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// HandleMoveUp moves a mode one place earlier.
//
// HTTP: POST /api/modes/{id}/move-up
func (h *ModeHandler) HandleMoveUp(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.modes.MoveUp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "moving mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Outcome: outcome})
}

// HandleMoveToTop makes a mode the first one.
//
// HTTP: POST /api/modes/{id}/move-top
func (h *ModeHandler) HandleMoveToTop(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.modes.MoveToTop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "pinning mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Outcome: outcome})
}

// HandleCurrent returns the current mode.
//
// HTTP: GET /api/modes/current
func (h *ModeHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	mode, err := h.modes.Current(r.Context())
	if err != nil {
		h.fail(w, "reading current mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, mode)
}

// HandleSwitch sets the current mode.
//
// HTTP: PUT /api/modes/current  {"id": "..."}
func (h *ModeHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	var req currentModeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := h.modes.Switch(r.Context(), req.ID)
	if err != nil {
		h.fail(w, "switching mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, mode)
}

// HandleCycle moves the current mode forward (direction 1) or back (-1),
// wrapping at both ends.
//
// HTTP: POST /api/modes/cycle  {"direction": -1}
func (h *ModeHandler) HandleCycle(w http.ResponseWriter, r *http.Request) {
	var req cycleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Direction != 1 && req.Direction != -1 {
		writeError(w, apperror.ValidationFailed("direction", "direction must be 1 or -1"))
		return
	}
	mode, err := h.modes.Cycle(r.Context(), req.Direction)
	if err != nil {
		h.fail(w, "cycling mode failed", err)
		return
	}
	writeJSON(w, http.StatusOK, mode)
}
