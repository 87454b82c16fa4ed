package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/storage"
)

const conversationsPrefix = "/v1/conversations/"

// ConversationsHandler handles GET /v1/conversations/{id}
type ConversationsHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewConversationsHandler(store storage.Storage, logger *slog.Logger) *ConversationsHandler {
	return &ConversationsHandler{storage: store, logger: logger}
}

func (h *ConversationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, conversationsPrefix), "/")
	id, err := uuid.Parse(raw)
	if err != nil || strings.Contains(raw, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid conversation ID format.")
		return
	}

	conv, err := h.storage.LoadConversation(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load conversation", "error", err, "conversation_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load conversation.")
		return
	}
	turns, err := h.storage.LoadHistory(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load history", "error", err, "conversation_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load conversation.")
		return
	}
	if conv == nil && len(turns) == 0 {
		writeError(w, h.logger, http.StatusNotFound, "Conversation not found.")
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	writeJSON(w, h.logger, http.StatusOK, chat.HistoryResponse{Conversation: conv, Turns: turns})
}
