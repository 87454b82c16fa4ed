package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/internal/services/events"
	"github.com/redis/go-redis/v9"
)

const (
	eventsPrefix      = "/v1/events/conversations/"
	keepaliveInterval = 30 * time.Second
)

// EventsHandler streams turn events for one conversation as Server-Sent Events.
type EventsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	keepalive   time.Duration
}

func NewEventsHandler(redisClient *redis.Client, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		logger:      logger,
		keepalive:   keepaliveInterval,
	}
}

// ServeHTTP handles GET /v1/events/conversations/{id}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, eventsPrefix), "/")
	conversationID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid conversation ID format.")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming unsupported.")
		return
	}

	ctx := r.Context()
	pubsub := h.redisClient.Subscribe(ctx, events.Channel(conversationID))
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	// Wait for the subscription so no event published after "connected" is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe to events", "error", err, "conversation_id", conversationID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to subscribe to events.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.logger.Info("SSE connection established", "conversation_id", conversationID.String(), "remote_addr", r.RemoteAddr)

	if err := h.send(w, flusher, "connected", map[string]string{"conversation_id": conversationID.String()}); err != nil {
		return
	}

	msgs := pubsub.Channel()
	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", "conversation_id", conversationID.String())
			return

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err)
				continue
			}
			if err := h.send(w, flusher, string(ev.Type), ev); err != nil {
				return
			}

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) send(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		h.logger.Debug("Failed to write SSE event", "error", err)
		return err
	}
	flusher.Flush()
	return nil
}
