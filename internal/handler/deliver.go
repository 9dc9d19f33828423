package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/model"
)

// Delivery targets accepted by POST /api/deliver.
const (
	TargetNative = "native"
	TargetRelay  = "relay"
)

// Deliverer runs the clipboard → hide → restore → paste protocol.
type Deliverer interface {
	Deliver(ctx context.Context, content string, target delivery.Target) (delivery.Result, error)
}

// Relay forwards insert requests to connected in-page overlays.
type Relay interface {
	InsertPrompt(content string) (int, error)
}

// SnippetGetter looks a snippet up by id.
type SnippetGetter interface {
	Get(ctx context.Context, id string) (model.Snippet, error)
}

// DeliveryHandler gets a snippet into the user's input, either by pasting
// into the previously focused app or by handing it to an overlay.
type DeliveryHandler struct {
	deliverer Deliverer
	relay     Relay
	snippets  SnippetGetter
	logger    *slog.Logger
}

func NewDeliveryHandler(deliverer Deliverer, relay Relay, snippets SnippetGetter, logger *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{deliverer: deliverer, relay: relay, snippets: snippets, logger: logger}
}

// deliverRequest names either the content itself or a stored snippet.
type deliverRequest struct {
	Content   string `json:"content"`
	SnippetID string `json:"snippetId"`
	Target    string `json:"target"`
}

type deliverResponse struct {
	Outcome    string   `json:"outcome"`
	Message    string   `json:"message"`
	Recipients int      `json:"recipients,omitempty"`
	States     []string `json:"states,omitempty"`
}

// HandleDeliver delivers content.
//
// HTTP: POST /api/deliver
// REQUEST BODY: {"content": "Hello!", "target": "native"}
//
//	{"snippetId": "...", "target": "relay"}
//
// A native delivery that could only copy (no Accessibility permission,
// not macOS) is still a 200 with outcome "copied_only".
func (h *DeliveryHandler) HandleDeliver(w http.ResponseWriter, r *http.Request) {
	var req deliverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	content := req.Content
	if req.SnippetID != "" {
		snippet, err := h.snippets.Get(r.Context(), req.SnippetID)
		if err != nil {
			logFailure(h.logger, "loading snippet for delivery failed", err)
			writeError(w, err)
			return
		}
		content = snippet.Content
	}
	if content == "" {
		writeError(w, apperror.ValidationFailed("content", "content or snippetId is required"))
		return
	}

	switch req.Target {
	case "", TargetNative:
		h.deliverNative(w, r, content)
	case TargetRelay:
		h.deliverRelay(w, content)
	default:
		writeError(w, apperror.ValidationFailed("target", `target must be "native" or "relay"`))
	}
}

func (h *DeliveryHandler) deliverNative(w http.ResponseWriter, r *http.Request, content string) {
	res, err := h.deliverer.Deliver(r.Context(), content, delivery.NativeTarget{})
	if err != nil {
		logFailure(h.logger, "delivery failed", err)
		writeError(w, err)
		return
	}

	states := make([]string, len(res.States))
	for i, s := range res.States {
		states[i] = s.String()
	}
	writeJSON(w, http.StatusOK, deliverResponse{
		Outcome: string(res.Outcome),
		Message: res.Message,
		States:  states,
	})
}

func (h *DeliveryHandler) deliverRelay(w http.ResponseWriter, content string) {
	n, err := h.relay.InsertPrompt(content)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "no_overlay",
			Message: "no overlay is connected to receive the snippet",
		})
		return
	}

	h.logger.Info("snippet relayed", slog.Int("recipients", n))
	writeJSON(w, http.StatusOK, deliverResponse{
		Outcome:    "relayed",
		Message:    "sent to the page",
		Recipients: n,
	})
}
