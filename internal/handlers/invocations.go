package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

// InvocationRunner serves the runtime invocation contract.
type InvocationRunner interface {
	ProcessInvocation(ctx context.Context, inv chat.Invocation) (reply.Reply, error)
}

// InvocationsHandler handles POST /invocations. Model failures arrive from
// the runner as a 200 technical-difficulties reply; only a malformed body or
// a runner error answers 500, still in the reply schema.
type InvocationsHandler struct {
	runner InvocationRunner
	logger *slog.Logger
}

func NewInvocationsHandler(runner InvocationRunner, logger *slog.Logger) *InvocationsHandler {
	return &InvocationsHandler{runner: runner, logger: logger}
}

func (h *InvocationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var inv chat.Invocation
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		h.logger.Error("Invocation handler failed", "error", err)
		writeJSON(w, h.logger, http.StatusInternalServerError, reply.Unavailable())
		return
	}

	h.logger.Info("Processing invocation",
		"persona_name", inv.Persona.Name,
		"mode", inv.Persona.Mode,
		"prompt_length", len(inv.Prompt),
		"has_context", inv.ContextText() != "")

	out, err := h.runner.ProcessInvocation(r.Context(), inv)
	if err != nil {
		h.logger.Error("Invocation handler failed", "error", err, "message_id", inv.Message.ID)
		writeJSON(w, h.logger, http.StatusInternalServerError, reply.Unavailable())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}
