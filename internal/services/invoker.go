package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 8 * time.Second
)

// BackendInvoker calls a ModelBackend directly with bounded retries.
type BackendInvoker struct {
	backend     ModelBackend
	logger      *slog.Logger
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	maxTokens   int
	system      string
}

var _ Invoker = (*BackendInvoker)(nil)

// BackendOption customizes a BackendInvoker.
type BackendOption func(*BackendInvoker)

// WithRetries sets the attempt count and the first backoff delay. Each
// further delay doubles.
func WithRetries(attempts int, backoff time.Duration) BackendOption {
	return func(b *BackendInvoker) {
		if attempts > 0 {
			b.maxAttempts = attempts
		}
		if backoff >= 0 {
			b.backoff = backoff
		}
	}
}

// WithRateLimit caps outgoing model calls at perSecond with the given burst.
// perSecond <= 0 disables the limiter.
func WithRateLimit(perSecond float64, burst int) BackendOption {
	return func(b *BackendInvoker) {
		if perSecond <= 0 {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(n int) BackendOption {
	return func(b *BackendInvoker) { b.maxTokens = n }
}

// WithSystem sets a system prompt sent with every request.
func WithSystem(s string) BackendOption {
	return func(b *BackendInvoker) { b.system = s }
}

func NewBackendInvoker(backend ModelBackend, logger *slog.Logger, opts ...BackendOption) *BackendInvoker {
	b := &BackendInvoker{
		backend:     backend,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Invoke sends inv.Prompt to the backend and wraps the text as a raw reply.
func (b *BackendInvoker) Invoke(ctx context.Context, sessionID string, inv chat.Invocation) (reply.Raw, error) {
	if inv.Prompt == "" {
		return reply.Raw{}, ErrEmptyPrompt
	}
	req := ModelRequest{
		System:    b.system,
		Prompt:    inv.Prompt,
		MaxTokens: b.maxTokens,
	}
	req.Temperature = 1.0
	req.TopP = 1.0
	if inv.Persona.Temperature != nil {
		req.Temperature = *inv.Persona.Temperature
	}
	if inv.Persona.TopP != nil {
		req.TopP = *inv.Persona.TopP
	}

	var lastErr error
	delay := b.backoff
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return reply.Raw{}, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		text, err := b.backend.Complete(ctx, req)
		if err == nil {
			return reply.FromText(text), nil
		}
		lastErr = err
		b.logger.Warn("Model call failed",
			"backend", b.backend.Name(),
			"session_id", sessionID,
			"attempt", attempt,
			"error", err)

		if attempt == b.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return reply.Raw{}, fmt.Errorf("model call cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
	return reply.Raw{}, fmt.Errorf("model call failed after %d attempts: %w", b.maxAttempts, lastErr)
}
