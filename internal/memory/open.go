package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/redis/go-redis/v9"
)

const (
	BackendNone     = "none"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Store is a memory.Store that owns a connection.
type Store interface {
	memory.Store
	io.Closer
}

// Options selects and configures a memory backend.
type Options struct {
	Backend string
	// DSN is the sqlite path or postgres connection string.
	DSN    string
	Redis  *redis.Client
	Logger *slog.Logger
}

// Open connects the configured backend. BackendNone returns nil, nil and the
// pipeline then runs without long-term memory.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis memory backend requires a redis client")
		}
		return NewRedisStore(opts.Redis, opts.Logger), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.DSN, opts.Logger)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DSN, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown memory backend %q", opts.Backend)
	}
}
