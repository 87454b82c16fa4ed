package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/persona-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(os.Stdout, cfg)
}

func setup(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With("service", "persona-engine")
	slog.SetDefault(logger)
	return logger
}

// ForTurn scopes a logger to one conversation turn.
func ForTurn(logger *slog.Logger, conversationID, messageID string) *slog.Logger {
	return logger.With("conversation_id", conversationID, "message_id", messageID)
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}
