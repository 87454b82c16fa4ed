package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/internal/services/events"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/queue"
)

// Enqueuer accepts turn requests for the worker.
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// TurnAcceptedResponse is returned with 202 for an async turn.
type TurnAcceptedResponse struct {
	RequestID      string    `json:"request_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Status         string    `json:"status"`
}

// TurnsHandler handles POST /v1/turns
type TurnsHandler struct {
	queue       Enqueuer
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// NewTurnsHandler creates the async turn handler. broadcaster may be nil.
func NewTurnsHandler(q Enqueuer, broadcaster *events.Broadcaster, logger *slog.Logger) *TurnsHandler {
	return &TurnsHandler{queue: q, broadcaster: broadcaster, logger: logger}
}

func (h *TurnsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var turn chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&turn); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'message' field.")
		return
	}
	if err := turn.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	req := queue.NewTurnRequest(turn)
	if err := h.queue.EnqueueRequest(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue turn", "error", err, "conversation_id", req.ConversationID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue turn. Please try again.")
		return
	}

	if h.broadcaster != nil {
		if err := h.broadcaster.PublishTurnQueued(r.Context(), req.ConversationID, req.RequestID); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err)
		}
	}

	h.logger.Info("Turn queued", "request_id", req.RequestID, "conversation_id", req.ConversationID.String())
	writeJSON(w, h.logger, http.StatusAccepted, TurnAcceptedResponse{
		RequestID:      req.RequestID,
		ConversationID: req.ConversationID,
		MessageID:      req.Turn.MessageID,
		Status:         "queued",
	})
}
