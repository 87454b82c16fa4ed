package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/persona-engine/pkg/memory"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memory_records (
	namespace  TEXT NOT NULL,
	request_id TEXT NOT NULL,
	text       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, request_id)
);
CREATE TABLE IF NOT EXISTS memory_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id   TEXT NOT NULL,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memory_events_session ON memory_events(actor_id, session_id);
`

// SQLiteStore is a single-file memory backend for local runs.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite memory backend requires a path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA journal_mode = WAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating memory schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Retrieve(ctx context.Context, namespace, query string, topK int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, text, updated_at FROM memory_records WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("querying memory records: %w", err)
	}
	defer rows.Close()

	var records []memory.Record
	for rows.Next() {
		var rec memory.Record
		var updated string
		if err := rows.Scan(&rec.ID, &rec.Text, &updated); err != nil {
			return nil, fmt.Errorf("scanning memory record: %w", err)
		}
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading memory records: %w", err)
	}
	return memory.Rank(records, query, topK), nil
}

func (s *SQLiteStore) CreateEvent(ctx context.Context, ev memory.Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling event metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_events (actor_id, session_id, role, text, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ActorID, ev.SessionID, ev.Role, ev.Text, string(meta), ev.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting memory event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, requestID string, namespaces []string, text string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, ns := range namespaces {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO memory_records (namespace, request_id, text, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, request_id) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
			ns, requestID, text, now)
		if err != nil {
			return fmt.Errorf("upserting memory record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing memory record: %w", err)
	}
	return nil
}

// EventCount returns how many events a session has recorded.
func (s *SQLiteStore) EventCount(ctx context.Context, actorID, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_events WHERE actor_id = ? AND session_id = ?`, actorID, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting memory events: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
