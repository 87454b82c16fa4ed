package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, testLogger())
}

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "memory.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// exerciseStore runs the behavior every backend shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	sem := memory.SemanticNamespace("", "alice")
	chr := memory.CharacterNamespace("", "alice")

	got, err := s.Retrieve(ctx, sem, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveRecord(ctx, "character-profile-1", []string{sem, chr}, "Aldric the dwarf fighter carries rope"))
	require.NoError(t, s.SaveRecord(ctx, "character-profile-2", []string{sem}, "The tavern smells of ale"))

	got, err = s.Retrieve(ctx, chr, memory.CharacterQuery, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aldric the dwarf fighter carries rope"}, got)

	got, err = s.Retrieve(ctx, sem, "tavern ale", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"The tavern smells of ale"}, got)

	// Same request id overwrites rather than duplicating.
	require.NoError(t, s.SaveRecord(ctx, "character-profile-1", []string{chr}, "Aldric now carries a lantern"))
	got, err = s.Retrieve(ctx, chr, "lantern", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aldric now carries a lantern"}, got)

	got, err = s.Retrieve(ctx, sem, "tavern", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	err = s.CreateEvent(ctx, memory.Event{
		ActorID:   "alice",
		SessionID: "conv-1",
		Role:      memory.RoleUser,
		Text:      "hello",
		Metadata:  map[string]string{"messageId": "m1"},
	})
	require.NoError(t, err)
}

func TestRedisStore(t *testing.T) {
	s := setupRedisStore(t)
	exerciseStore(t, s)

	events, err := s.Events(context.Background(), "alice", "conv-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, memory.RoleUser, events[0].Role)
	assert.Equal(t, "hello", events[0].Text)
	assert.Equal(t, "m1", events[0].Metadata["messageId"])
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestSQLiteStore(t *testing.T) {
	s := setupSQLiteStore(t)
	exerciseStore(t, s)

	n, err := s.EventCount(context.Background(), "alice", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("MEMORY_POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("MEMORY_POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn, testLogger())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, `TRUNCATE memory_records, memory_events`)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(ctx, Options{Backend: BackendRedis})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: "cassandra"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Backend: BackendPostgres})
	assert.Error(t, err)

	s, err = Open(ctx, Options{Backend: "SQLite", DSN: filepath.Join(t.TempDir(), "m.db"), Logger: testLogger()})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())
}
