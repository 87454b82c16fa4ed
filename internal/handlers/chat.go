package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/persona-engine/pkg/chat"
)

// DefaultTurnTimeout bounds a synchronous turn including model retries.
const DefaultTurnTimeout = 2 * time.Minute

// TurnRunner runs a single turn synchronously.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error)
}

// ChatHandler handles POST /v1/chat
type ChatHandler struct {
	runner  TurnRunner
	logger  *slog.Logger
	timeout time.Duration
}

// NewChatHandler creates a new chat handler
func NewChatHandler(runner TurnRunner, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		runner:  runner,
		logger:  logger,
		timeout: DefaultTurnTimeout,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'message' field.")
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.Warn("Invalid chat request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.runner.ProcessTurn(ctx, req)
	if err != nil {
		h.logger.Error("Error processing chat turn", "error", err, "conversation_id", req.ConversationID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to process turn. Please try again.")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
