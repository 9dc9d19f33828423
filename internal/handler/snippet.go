package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/model"
	"github.com/sakif/snippet-picker/internal/repository"
	"github.com/sakif/snippet-picker/internal/service"
)

// SnippetHandler serves snippet CRUD, search, reordering and import/export.
//
// The handler only translates HTTP to service calls and back. Every rule
// (validation, "new snippets go to the current mode", ranking) lives in
// service.SnippetService so the terminal picker gets the same behaviour.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// snippetRequest is the body of create and update. ModeID may be empty:
// create then uses the current mode, update keeps the snippet's mode.
type snippetRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	ModeID  string `json:"modeId"`
}

type moveResponse struct {
	Outcome repository.Outcome `json:"outcome"`
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}

// HandleList ranks snippets.
//
// HTTP: GET /api/snippets?q=&mode=&global=1
//
// Without q the mode's snippets come back in stored order with score 0.
// Without mode the current mode is used.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.snippets.Search(r.Context(), q.Get("q"), q.Get("mode"), parseBool(q.Get("global")))
	if err != nil {
		logFailure(h.logger, "listing snippets failed", err)
		writeError(w, err)
		return
	}
	if results == nil {
		results = []model.ScoredSnippet{}
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleGet returns one snippet.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "getting snippet failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate adds a snippet.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"name": "greet", "content": "Hello!", "modeId": ""}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), req.Name, req.Content, req.ModeID)
	if err != nil {
		logFailure(h.logger, "creating snippet failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate replaces a snippet's fields, keeping its position.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Content, req.ModeID)
	if err != nil {
		logFailure(h.logger, "updating snippet failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		logFailure(h.logger, "deleting snippet failed", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMoveUp swaps a snippet with the previous one of its mode.
//
// HTTP: POST /api/snippets/{id}/move-up
func (h *SnippetHandler) HandleMoveUp(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.snippets.MoveUp(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "moving snippet failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Outcome: outcome})
}

// HandleMoveToTop pins a snippet to the first position of its mode.
//
// HTTP: POST /api/snippets/{id}/move-top
func (h *SnippetHandler) HandleMoveToTop(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.snippets.MoveToTop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "pinning snippet failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Outcome: outcome})
}

// HandleDeleteInMode removes every snippet of a mode. The mode stays.
//
// HTTP: DELETE /api/modes/{id}/snippets
func (h *SnippetHandler) HandleDeleteInMode(w http.ResponseWriter, r *http.Request) {
	n, err := h.snippets.DeleteAllInMode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "clearing mode failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// HandleImport appends the snippets in a text body to the current mode.
//
// HTTP: POST /api/import
// REQUEST BODY (text/plain): blocks separated by blank lines, first line
// is the name, the rest is the content.
func (h *SnippetHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "import body is too large or unreadable"))
		return
	}

	result, err := h.snippets.Import(r.Context(), string(body))
	if err != nil {
		logFailure(h.logger, "import failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleExport downloads one mode, or everything with all=1.
//
// HTTP: GET /api/export?mode=&all=1
func (h *SnippetHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.snippets.Export(r.Context(), q.Get("mode"), parseBool(q.Get("all")))
	if err != nil {
		logFailure(h.logger, "export failed", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
	w.Header().Set("X-Snippet-Count", strconv.Itoa(result.Count))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, result.Body)
}
