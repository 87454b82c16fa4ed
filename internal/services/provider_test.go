package services

import (
	"context"
	"testing"

	"github.com/jwebster45206/persona-engine/internal/config"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoker(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		cfg         config.Config
		wantBackend string
		wantType    any
		wantErr     bool
	}{
		{
			name:        "mock",
			cfg:         config.Config{LLMProvider: config.ProviderMock, ModelMaxAttempts: 1},
			wantBackend: "mock",
			wantType:    &BackendInvoker{},
		},
		{
			name:        "anthropic",
			cfg:         config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKey: "k", ModelMaxAttempts: 3, ModelRateLimit: 2},
			wantBackend: "anthropic",
			wantType:    &BackendInvoker{},
		},
		{
			name:        "venice",
			cfg:         config.Config{LLMProvider: config.ProviderVenice, VeniceAPIKey: "k"},
			wantBackend: "venice",
			wantType:    &BackendInvoker{},
		},
		{
			name:        "runtime",
			cfg:         config.Config{LLMProvider: config.ProviderRuntime, RuntimeURL: "http://localhost:9000"},
			wantBackend: "runtime",
			wantType:    &RuntimeInvoker{},
		},
		{
			name:    "runtime without url",
			cfg:     config.Config{LLMProvider: config.ProviderRuntime},
			wantErr: true,
		},
		{
			name:    "gemini without key",
			cfg:     config.Config{LLMProvider: config.ProviderGemini},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     config.Config{LLMProvider: "ollama"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, backend, err := NewInvoker(ctx, &tt.cfg, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBackend, backend)
			assert.IsType(t, tt.wantType, inv)
		})
	}
}

func TestNewInvoker_MockRoundTrip(t *testing.T) {
	cfg := &config.Config{LLMProvider: config.ProviderMock, ModelMaxAttempts: 1}
	inv, _, err := NewInvoker(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	raw, err := inv.Invoke(context.Background(), "session-1", chat.Invocation{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, MockResponse, raw.Text)
}
