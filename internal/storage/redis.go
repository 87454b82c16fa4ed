package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an idle conversation is kept
const DefaultTTL = 24 * time.Hour

// RedisStorage implements storage.Storage with a Redis list of turns and a
// JSON document per conversation
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return NewRedisStorageFromClient(redis.NewClient(opt), ttl, logger), nil
}

// NewRedisStorageFromClient wraps an existing connection
func NewRedisStorageFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStorage{client: client, logger: logger, ttl: ttl}
}

func turnsKey(id uuid.UUID) string        { return "conversation:" + id.String() + ":turns" }
func conversationKey(id uuid.UUID) string { return "conversation:" + id.String() }

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Client returns the underlying connection for callers that share it
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Turn operations

func (r *RedisStorage) LoadHistory(ctx context.Context, id uuid.UUID) ([]chat.Turn, error) {
	items, err := r.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Error("Failed to load history", "conversation_id", id, "error", err)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]chat.Turn, 0, len(items))
	for i, item := range items {
		var t chat.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			r.logger.Error("Failed to unmarshal turn", "conversation_id", id, "index", i, "error", err)
			return nil, fmt.Errorf("failed to unmarshal turn %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisStorage) SaveResponse(ctx context.Context, id uuid.UUID, turn chat.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := turnsKey(id)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, r.ttl)
	pipe.Expire(ctx, conversationKey(id), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save turn", "conversation_id", id, "error", err)
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// Conversation operations

func (r *RedisStorage) LoadConversation(ctx context.Context, id uuid.UUID) (*chat.Conversation, error) {
	data, err := r.client.Get(ctx, conversationKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load conversation", "conversation_id", id, "error", err)
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var conv chat.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

func (r *RedisStorage) SaveConversation(ctx context.Context, conv *chat.Conversation) error {
	if conv == nil {
		return errors.New("conversation cannot be nil")
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.client.Set(ctx, conversationKey(conv.ID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save conversation", "conversation_id", conv.ID, "error", err)
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}
