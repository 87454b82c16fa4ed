package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/persona-engine/pkg/chat"
)

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", "error", err, "status", status)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, chat.ErrorResponse{Error: msg})
}

// methodNotAllowed answers with 405 and logs the attempt.
func methodNotAllowed(w http.ResponseWriter, r *http.Request, log *slog.Logger, allowed string) {
	log.Warn("Method not allowed",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	w.Header().Set("Allow", allowed)
	writeError(w, log, http.StatusMethodNotAllowed, "Method not allowed. Only "+allowed+" is supported.")
}
