package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/redis/go-redis/v9"
)

// maxEventsPerSession caps each short-term event stream.
const maxEventsPerSession = 1000

// RedisStore keeps long-term records in one hash per namespace and
// short-term events in one stream per actor session.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

type redisRecord struct {
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func recordsKey(namespace string) string { return "memory:records:" + namespace }

func eventsKey(actorID, sessionID string) string {
	return "memory:events:" + memory.Sanitize(actorID) + ":" + memory.Sanitize(sessionID)
}

func (s *RedisStore) Retrieve(ctx context.Context, namespace, query string, topK int) ([]string, error) {
	all, err := s.client.HGetAll(ctx, recordsKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory records: %w", err)
	}

	records := make([]memory.Record, 0, len(all))
	for id, raw := range all {
		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("Skipping unreadable memory record", "namespace", namespace, "id", id, "error", err)
			continue
		}
		records = append(records, memory.Record{ID: id, Text: rec.Text, UpdatedAt: rec.UpdatedAt})
	}
	return memory.Rank(records, query, topK), nil
}

func (s *RedisStore) CreateEvent(ctx context.Context, ev memory.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventsKey(ev.ActorID, ev.SessionID),
		MaxLen: maxEventsPerSession,
		Approx: true,
		Values: map[string]any{
			"role":       ev.Role,
			"text":       ev.Text,
			"metadata":   string(meta),
			"created_at": ev.CreatedAt.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add memory event: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveRecord(ctx context.Context, requestID string, namespaces []string, text string) error {
	data, err := json.Marshal(redisRecord{Text: text, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal memory record: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, ns := range namespaces {
		pipe.HSet(ctx, recordsKey(ns), requestID, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save memory record: %w", err)
	}
	return nil
}

// Events returns the recorded events of one session, oldest first.
func (s *RedisStore) Events(ctx context.Context, actorID, sessionID string) ([]memory.Event, error) {
	msgs, err := s.client.XRange(ctx, eventsKey(actorID, sessionID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory events: %w", err)
	}

	events := make([]memory.Event, 0, len(msgs))
	for _, m := range msgs {
		ev := memory.Event{
			ActorID:   actorID,
			SessionID: sessionID,
			Role:      fmt.Sprint(m.Values["role"]),
			Text:      fmt.Sprint(m.Values["text"]),
		}
		if raw, ok := m.Values["metadata"].(string); ok && raw != "null" {
			_ = json.Unmarshal([]byte(raw), &ev.Metadata)
		}
		if raw, ok := m.Values["created_at"].(string); ok {
			ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, raw)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Close is a no-op; the Redis connection is shared and owned by the caller.
func (s *RedisStore) Close() error { return nil }
