package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnQueued     EventType = "turn.queued"
	EventTypeTurnProcessing EventType = "turn.processing"
	EventTypeTurnCompleted  EventType = "turn.completed"
	EventTypeTurnFailed     EventType = "turn.failed"
)

// Event is one lifecycle update for a queued turn
type Event struct {
	Type           EventType      `json:"type"`
	RequestID      string         `json:"request_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying events for one conversation
func Channel(conversationID uuid.UUID) string {
	return "conversation-events:" + conversationID.String()
}

// Broadcaster publishes turn events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishTurnQueued(ctx context.Context, conversationID uuid.UUID, requestID string) error {
	return b.publish(ctx, conversationID, Event{
		Type:      EventTypeTurnQueued,
		RequestID: requestID,
		Data:      map[string]any{"status": "queued"},
	})
}

func (b *Broadcaster) PublishTurnProcessing(ctx context.Context, conversationID uuid.UUID, requestID string, userMessage string) error {
	return b.publish(ctx, conversationID, Event{
		Type:      EventTypeTurnProcessing,
		RequestID: requestID,
		Data: map[string]any{
			"status":       "processing",
			"user_message": userMessage,
		},
	})
}

func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, conversationID uuid.UUID, requestID string, messageID string, r reply.Reply) error {
	return b.publish(ctx, conversationID, Event{
		Type:      EventTypeTurnCompleted,
		RequestID: requestID,
		Data: map[string]any{
			"status":     "completed",
			"message_id": messageID,
			"reply":      r,
		},
	})
}

func (b *Broadcaster) PublishTurnFailed(ctx context.Context, conversationID uuid.UUID, requestID string, errorMsg string) error {
	return b.publish(ctx, conversationID, Event{
		Type:      EventTypeTurnFailed,
		RequestID: requestID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, conversationID uuid.UUID, event Event) error {
	event.ConversationID = conversationID.String()
	channel := Channel(conversationID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}
