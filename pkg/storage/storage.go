package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
)

// Storage is the conversation persistence boundary used by the pipeline.
// Only the read/write contract lives here; the Redis implementation is in
// internal/storage.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Turn history, oldest first. An unknown conversation has no turns.
	LoadHistory(ctx context.Context, id uuid.UUID) ([]chat.Turn, error)
	SaveResponse(ctx context.Context, id uuid.UUID, turn chat.Turn) error

	// Conversation metadata. LoadConversation returns nil, nil when not found.
	LoadConversation(ctx context.Context, id uuid.UUID) (*chat.Conversation, error)
	SaveConversation(ctx context.Context, conv *chat.Conversation) error
}
