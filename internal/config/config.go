package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported model providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderVenice    = "venice"
	ProviderGemini    = "gemini"
	ProviderRuntime   = "runtime"
	ProviderMock      = "mock"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL        string
	ConversationTTL time.Duration
	HistoryLimit    int
	PersonaDir      string

	LLMProvider      string
	ModelName        string
	AnthropicAPIKey  string
	VeniceAPIKey     string
	GeminiAPIKey     string
	ModelMaxTokens   int
	ModelMaxAttempts int
	ModelRateLimit   float64 // requests per second, 0 disables limiting

	RuntimeURL             string
	RuntimeTimeout         time.Duration
	RuntimeTraceEnabled    bool
	RuntimeTraceSampleRate float64

	MemoryBackend             string
	MemorySQLitePath          string
	MemoryPostgresDSN         string
	MemorySemanticStrategyID  string
	MemoryCharacterStrategyID string

	WorkerID          string
	WorkerConcurrency int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		RedisURL:   os.Getenv("REDIS_URL"),
		PersonaDir: os.Getenv("PERSONA_DIR"),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderAnthropic)),
		ModelName:       os.Getenv("MODEL_NAME"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		VeniceAPIKey:    os.Getenv("VENICE_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),

		RuntimeURL: strings.TrimRight(os.Getenv("RUNTIME_URL"), "/"),

		MemoryBackend:             strings.ToLower(getEnv("MEMORY_BACKEND", "none")),
		MemorySQLitePath:          getEnv("MEMORY_SQLITE_PATH", "./data/memory.db"),
		MemoryPostgresDSN:         os.Getenv("MEMORY_POSTGRES_DSN"),
		MemorySemanticStrategyID:  os.Getenv("MEMORY_SEMANTIC_STRATEGY_ID"),
		MemoryCharacterStrategyID: os.Getenv("MEMORY_CHARACTER_STRATEGY_ID"),

		WorkerID: os.Getenv("WORKER_ID"),
	}

	var err error
	if cfg.ConversationTTL, err = getEnvDuration("CONVERSATION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getEnvInt("HISTORY_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.ModelMaxTokens, err = getEnvInt("MODEL_MAX_TOKENS", 0); err != nil {
		return nil, err
	}
	if cfg.ModelMaxAttempts, err = getEnvInt("MODEL_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.ModelRateLimit, err = getEnvFloat("MODEL_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.RuntimeTimeout, err = getEnvDuration("RUNTIME_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RuntimeTraceEnabled, err = getEnvBool("RUNTIME_TRACE_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.RuntimeTraceSampleRate, err = getEnvFloat("RUNTIME_TRACE_SAMPLE_RATE", 0); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getEnvInt("WORKER_CONCURRENCY", 1); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}

	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderVenice:
		if c.VeniceAPIKey == "" {
			return errors.New("VENICE_API_KEY is required for the venice provider")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderRuntime:
		if c.RuntimeURL == "" {
			return errors.New("RUNTIME_URL is required for the runtime provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.MemoryBackend {
	case "none", "redis":
	case "sqlite":
		if c.MemorySQLitePath == "" {
			return errors.New("MEMORY_SQLITE_PATH is required for the sqlite memory backend")
		}
	case "postgres":
		if c.MemoryPostgresDSN == "" {
			return errors.New("MEMORY_POSTGRES_DSN is required for the postgres memory backend")
		}
	default:
		return fmt.Errorf("unsupported MEMORY_BACKEND %q", c.MemoryBackend)
	}

	if c.HistoryLimit < 0 {
		return errors.New("HISTORY_LIMIT must not be negative")
	}
	if c.ModelMaxAttempts < 1 {
		return errors.New("MODEL_MAX_ATTEMPTS must be at least 1")
	}
	if c.WorkerConcurrency < 1 {
		return errors.New("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// MemoryDSN is the connection target for the selected memory backend.
func (c *Config) MemoryDSN() string {
	switch c.MemoryBackend {
	case "sqlite":
		return c.MemorySQLitePath
	case "postgres":
		return c.MemoryPostgresDSN
	}
	return ""
}
