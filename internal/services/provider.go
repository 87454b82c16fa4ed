package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/persona-engine/internal/config"
)

// NewInvoker builds the Invoker for the configured provider. It also returns
// the backend name used to label model metrics.
func NewInvoker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Invoker, string, error) {
	var backend ModelBackend
	switch cfg.LLMProvider {
	case config.ProviderRuntime:
		inv, err := NewRuntimeInvoker(cfg.RuntimeURL, cfg.RuntimeTimeout, cfg.RuntimeTraceEnabled, cfg.RuntimeTraceSampleRate, logger)
		if err != nil {
			return nil, "", err
		}
		return inv, config.ProviderRuntime, nil
	case config.ProviderAnthropic:
		backend = NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, logger)
	case config.ProviderVenice:
		backend = NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName)
	case config.ProviderGemini:
		g, err := NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, logger)
		if err != nil {
			return nil, "", err
		}
		backend = g
	case config.ProviderMock:
		backend = NewMockLLMAPI()
	default:
		return nil, "", fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}

	inv := NewBackendInvoker(backend, logger,
		WithRetries(cfg.ModelMaxAttempts, DefaultRetryBackoff),
		WithRateLimit(cfg.ModelRateLimit, 1),
		WithMaxTokens(cfg.ModelMaxTokens),
	)
	return inv, backend.Name(), nil
}
