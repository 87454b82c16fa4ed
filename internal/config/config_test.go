package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("LLM_PROVIDER", "mock")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.ConversationTTL)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 3, cfg.ModelMaxAttempts)
	assert.Equal(t, "none", cfg.MemoryBackend)
	assert.Equal(t, 1, cfg.WorkerConcurrency)
	assert.False(t, cfg.RuntimeTraceEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("HISTORY_LIMIT", "10")
	t.Setenv("CONVERSATION_TTL", "2h")
	t.Setenv("LLM_PROVIDER", "Runtime")
	t.Setenv("RUNTIME_URL", "http://runtime:8080/")
	t.Setenv("RUNTIME_TRACE_ENABLED", "true")
	t.Setenv("RUNTIME_TRACE_SAMPLE_RATE", "0.25")
	t.Setenv("MEMORY_BACKEND", "sqlite")
	t.Setenv("WORKER_CONCURRENCY", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 2*time.Hour, cfg.ConversationTTL)
	assert.Equal(t, ProviderRuntime, cfg.LLMProvider)
	assert.Equal(t, "http://runtime:8080", cfg.RuntimeURL)
	assert.True(t, cfg.RuntimeTraceEnabled)
	assert.InDelta(t, 0.25, cfg.RuntimeTraceSampleRate, 1e-9)
	assert.Equal(t, "./data/memory.db", cfg.MemorySQLitePath)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing redis", map[string]string{"REDIS_URL": ""}},
		{"anthropic without key", map[string]string{"LLM_PROVIDER": "anthropic"}},
		{"venice without key", map[string]string{"LLM_PROVIDER": "venice"}},
		{"gemini without key", map[string]string{"LLM_PROVIDER": "gemini"}},
		{"runtime without url", map[string]string{"LLM_PROVIDER": "runtime"}},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "ollama"}},
		{"postgres without dsn", map[string]string{"MEMORY_BACKEND": "postgres"}},
		{"unknown memory backend", map[string]string{"MEMORY_BACKEND": "dynamo"}},
		{"bad int", map[string]string{"HISTORY_LIMIT": "ten"}},
		{"negative history", map[string]string{"HISTORY_LIMIT": "-1"}},
		{"bad duration", map[string]string{"CONVERSATION_TTL": "forever"}},
		{"bad bool", map[string]string{"RUNTIME_TRACE_ENABLED": "maybe"}},
		{"zero attempts", map[string]string{"MODEL_MAX_ATTEMPTS": "0"}},
		{"zero concurrency", map[string]string{"WORKER_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv("ANTHROPIC_API_KEY", "")
			t.Setenv("VENICE_API_KEY", "")
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("RUNTIME_URL", "")
			t.Setenv("MEMORY_POSTGRES_DSN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestMemoryDSN(t *testing.T) {
	cfg := &Config{MemorySQLitePath: "/tmp/m.db", MemoryPostgresDSN: "postgres://x"}

	cfg.MemoryBackend = "sqlite"
	assert.Equal(t, "/tmp/m.db", cfg.MemoryDSN())
	cfg.MemoryBackend = "postgres"
	assert.Equal(t, "postgres://x", cfg.MemoryDSN())
	cfg.MemoryBackend = "redis"
	assert.Empty(t, cfg.MemoryDSN())
}
