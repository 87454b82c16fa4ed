package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	components map[string]Pinger
	logger     *slog.Logger
}

// NewHealthHandler checks each named component on every request.
func NewHealthHandler(components map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		components: components,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	components := make(map[string]string, len(h.components))
	for name, c := range h.components {
		if err := c.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			status = "degraded"
			continue
		}
		components[name] = "healthy"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, code, HealthResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Service:    "persona-engine",
		Components: components,
	})
}

// PingHandler is the runtime liveness check: GET /ping.
type PingHandler struct{}

func (PingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy"}` + "\n"))
}
