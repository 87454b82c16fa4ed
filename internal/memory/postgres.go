package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jwebster45206/persona-engine/pkg/memory"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS memory_records (
	namespace  TEXT NOT NULL,
	request_id TEXT NOT NULL,
	text       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, request_id)
);
CREATE TABLE IF NOT EXISTS memory_events (
	id         BIGSERIAL PRIMARY KEY,
	actor_id   TEXT NOT NULL,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_memory_events_session ON memory_events(actor_id, session_id);
`

// PostgresStore ranks records with Postgres full-text search.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres memory backend requires a DSN")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating memory schema: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Retrieve(ctx context.Context, namespace, query string, topK int) ([]string, error) {
	if topK <= 0 {
		return []string{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT text FROM memory_records
		WHERE namespace = $1
		ORDER BY ts_rank(to_tsvector('english', text), plainto_tsquery('english', $2)) DESC, updated_at DESC
		LIMIT $3`, namespace, query, topK)
	if err != nil {
		return nil, fmt.Errorf("querying memory records: %w", err)
	}
	texts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("reading memory records: %w", err)
	}
	return texts, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, ev memory.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling event metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO memory_events (actor_id, session_id, role, text, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ActorID, ev.SessionID, ev.Role, ev.Text, meta, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting memory event: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, requestID string, namespaces []string, text string) error {
	batch := &pgx.Batch{}
	for _, ns := range namespaces {
		batch.Queue(`
			INSERT INTO memory_records (namespace, request_id, text, updated_at) VALUES ($1, $2, $3, now())
			ON CONFLICT (namespace, request_id) DO UPDATE SET text = EXCLUDED.text, updated_at = now()`,
			ns, requestID, text)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting memory record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
