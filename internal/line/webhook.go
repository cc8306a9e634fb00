package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// EventHandler answers one text event.
type EventHandler func(ctx context.Context, event Event) error

// Decode reads a webhook body.
func Decode(r io.Reader) (*WebhookRequest, error) {
	var req WebhookRequest
	if err := json.NewDecoder(io.LimitReader(r, maxWebhookBody)).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &req, nil
}

// TextEvents filters the events the bot replies to.
func (r *WebhookRequest) TextEvents() []Event {
	events := make([]Event, 0, len(r.Events))
	for _, e := range r.Events {
		if e.IsText() {
			events = append(events, e)
		}
	}
	return events
}

// WebhookHandler serves the LINE callback. Events are handled in order within the
// request; a failing event is logged and does not fail the delivery.
type WebhookHandler struct {
	handle EventHandler
	logger *zap.Logger
}

func NewWebhookHandler(handle EventHandler, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{handle: handle, logger: logger}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := Decode(r.Body)
	if err != nil {
		h.logger.Warn("Invalid LINE webhook body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid webhook body"})
		return
	}

	for _, event := range req.TextEvents() {
		if err := h.handle(r.Context(), event); err != nil {
			h.logger.Error("LINE event failed",
				zap.String("room", event.Source.Room()),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
