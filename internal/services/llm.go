package services

import (
	"context"
	"errors"

	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

const msgNoResponse = "(no response)"

// ErrEmptyPrompt is returned when an invocation carries nothing to send.
var ErrEmptyPrompt = errors.New("invocation has no prompt")

// ModelRequest is the single request shape every model backend accepts.
type ModelRequest struct {
	System      string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// ModelBackend sends one prompt to an LLM provider and returns its raw text.
type ModelBackend interface {
	Name() string
	Complete(ctx context.Context, req ModelRequest) (string, error)
}

// Invoker turns an invocation into a raw model reply. A returned error means
// the caller should use the sentinel reply.
type Invoker interface {
	Invoke(ctx context.Context, sessionID string, inv chat.Invocation) (reply.Raw, error)
}
