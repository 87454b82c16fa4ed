package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

const (
	SessionHeader = "X-Runtime-Session-Id"
	TraceHeader   = "X-Runtime-Trace-Id"

	sseDataPrefix = "data: "
)

// RuntimeInvoker posts invocations to a remote agent runtime that exposes
// POST /invocations.
type RuntimeInvoker struct {
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
	traceEnabled bool
	sampleRate   float64
	random       func() float64
}

var _ Invoker = (*RuntimeInvoker)(nil)

// NewRuntimeInvoker creates a runtime client. sampleRate is clamped to [0,1].
func NewRuntimeInvoker(baseURL string, timeout time.Duration, traceEnabled bool, sampleRate float64, logger *slog.Logger) (*RuntimeInvoker, error) {
	if baseURL == "" {
		return nil, errors.New("runtime url must be provided")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &RuntimeInvoker{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		traceEnabled: traceEnabled,
		sampleRate:   max(0, min(sampleRate, 1)),
		random:       rand.Float64,
	}, nil
}

func (r *RuntimeInvoker) Invoke(ctx context.Context, sessionID string, inv chat.Invocation) (reply.Raw, error) {
	if sessionID == "" {
		return reply.Raw{}, errors.New("session id must be provided")
	}

	body, err := json.Marshal(inv)
	if err != nil {
		return reply.Raw{}, fmt.Errorf("failed to marshal invocation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/invocations", bytes.NewReader(body))
	if err != nil {
		return reply.Raw{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req.Header.Set(SessionHeader, sessionID)
	if r.shouldTrace() {
		traceID := inv.Message.ID
		if traceID == "" {
			traceID = uuid.New().String()
		}
		req.Header.Set(TraceHeader, traceID)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return reply.Raw{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply.Raw{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply.Raw{}, fmt.Errorf("runtime request failed with status %d: %s", resp.StatusCode, string(data))
	}

	contentType := resp.Header.Get("Content-Type")
	r.logger.Debug("Runtime invocation complete", "session_id", sessionID, "content_type", contentType)
	return r.decode(contentType, data), nil
}

func (r *RuntimeInvoker) shouldTrace() bool {
	if !r.traceEnabled {
		return false
	}
	if r.sampleRate <= 0 {
		return true
	}
	return r.random() <= r.sampleRate
}

// decode turns a runtime body into a raw reply. It never fails: an empty
// body is an empty mapping and non-JSON text becomes {"response": text}.
func (r *RuntimeInvoker) decode(contentType string, data []byte) reply.Raw {
	text := string(data)
	if strings.Contains(contentType, "text/event-stream") {
		text = StripSSE(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return reply.FromFields(map[string]any{})
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		r.logger.Warn("Runtime response was not valid JSON; using raw text")
		return reply.FromFields(map[string]any{"response": text})
	}
	switch v := decoded.(type) {
	case map[string]any:
		return reply.FromFields(v)
	case string:
		return reply.FromText(v)
	default:
		return reply.FromText(text)
	}
}

// StripSSE keeps the payload of "data: " lines, joined without separators.
// Text without any data lines is returned unchanged.
func StripSSE(raw string) string {
	var parts []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(line, sseDataPrefix) {
			parts = append(parts, line[len(sseDataPrefix):])
		}
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, "")
}
