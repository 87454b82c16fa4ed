package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(f float64) *float64 { return &f }

func TestBackendInvoker_PassesPersonaSampling(t *testing.T) {
	mock := NewMockLLMAPI()
	inv := NewBackendInvoker(mock, discardLogger(), WithMaxTokens(300), WithSystem("sys"))

	raw, err := inv.Invoke(context.Background(), "s1", chat.Invocation{
		Prompt:  "hello",
		Persona: chat.InvocationPersona{Temperature: floatPtr(0.95), TopP: floatPtr(0.92)},
	})
	require.NoError(t, err)
	assert.Equal(t, MockResponse, raw.Text)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, ModelRequest{System: "sys", Prompt: "hello", Temperature: 0.95, TopP: 0.92, MaxTokens: 300}, calls[0])
}

func TestBackendInvoker_DefaultsSampling(t *testing.T) {
	mock := NewMockLLMAPI()
	inv := NewBackendInvoker(mock, discardLogger())

	_, err := inv.Invoke(context.Background(), "s1", chat.Invocation{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, mock.GetCalls()[0].Temperature)
	assert.Equal(t, 1.0, mock.GetCalls()[0].TopP)
}

func TestBackendInvoker_RetriesThenSucceeds(t *testing.T) {
	mock := NewMockLLMAPI()
	attempts := 0
	mock.CompleteFunc = func(ctx context.Context, req ModelRequest) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("503")
		}
		return "ok", nil
	}
	inv := NewBackendInvoker(mock, discardLogger(), WithRetries(3, time.Millisecond))

	raw, err := inv.Invoke(context.Background(), "s1", chat.Invocation{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", raw.Text)
	assert.Equal(t, 3, attempts)
}

func TestBackendInvoker_GivesUp(t *testing.T) {
	mock := NewMockLLMAPI()
	mock.SetError(errors.New("down"))
	inv := NewBackendInvoker(mock, discardLogger(), WithRetries(2, time.Millisecond))

	_, err := inv.Invoke(context.Background(), "s1", chat.Invocation{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Len(t, mock.GetCalls(), 2)
}

func TestBackendInvoker_CancelStopsRetrying(t *testing.T) {
	mock := NewMockLLMAPI()
	mock.SetError(errors.New("down"))
	inv := NewBackendInvoker(mock, discardLogger(), WithRetries(5, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := inv.Invoke(ctx, "s1", chat.Invocation{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, mock.GetCalls(), 1)
}

func TestBackendInvoker_EmptyPrompt(t *testing.T) {
	inv := NewBackendInvoker(NewMockLLMAPI(), discardLogger())
	_, err := inv.Invoke(context.Background(), "s1", chat.Invocation{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestBackendInvoker_RateLimit(t *testing.T) {
	mock := NewMockLLMAPI()
	inv := NewBackendInvoker(mock, discardLogger(), WithRateLimit(1000, 1))
	for i := 0; i < 3; i++ {
		_, err := inv.Invoke(context.Background(), "s1", chat.Invocation{Prompt: "p"})
		require.NoError(t, err)
	}
	assert.Len(t, mock.GetCalls(), 3)
}

func TestRuntimeInvoker_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invocations", r.URL.Path)
		assert.Equal(t, "conv-1", r.Header.Get(SessionHeader))
		assert.Empty(t, r.Header.Get(TraceHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sensations":[],"thoughts":[],"memories":"","self_reflection":"","response":"hi"}`))
	}))
	defer server.Close()

	inv, err := NewRuntimeInvoker(server.URL+"/", time.Second, false, 0, discardLogger())
	require.NoError(t, err)

	raw, err := inv.Invoke(context.Background(), "conv-1", chat.Invocation{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "hi", raw.Fields["response"])
	assert.Equal(t, "hi", reply.Normalize(raw).Response)
}

func TestRuntimeInvoker_EventStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: message\ndata: {\"response\":\ndata: \"streamed\"}\n\n"))
	}))
	defer server.Close()

	inv, err := NewRuntimeInvoker(server.URL, time.Second, false, 0, discardLogger())
	require.NoError(t, err)

	raw, err := inv.Invoke(context.Background(), "conv-1", chat.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"response": "streamed"}, raw.Fields)
}

func TestRuntimeInvoker_Decode(t *testing.T) {
	inv, err := NewRuntimeInvoker("http://runtime", time.Second, false, 0, discardLogger())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{}, inv.decode("application/json", []byte("  ")).Fields)
	assert.Equal(t, map[string]any{"response": "plain words"}, inv.decode("application/json", []byte("plain words")).Fields)
	assert.Equal(t, "inner", inv.decode("application/json", []byte(`"inner"`)).Text)
	assert.Equal(t, "[1,2]", inv.decode("application/json", []byte("[1,2]")).Text)
}

func TestRuntimeInvoker_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	inv, err := NewRuntimeInvoker(server.URL, time.Second, false, 0, discardLogger())
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), "conv-1", chat.Invocation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRuntimeInvoker_Trace(t *testing.T) {
	var trace string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = r.Header.Get(TraceHeader)
	}))
	defer server.Close()

	always, err := NewRuntimeInvoker(server.URL, time.Second, true, 0, discardLogger())
	require.NoError(t, err)
	_, err = always.Invoke(context.Background(), "conv-1", chat.Invocation{Message: chat.InvocationMessage{ID: "m-7"}})
	require.NoError(t, err)
	assert.Equal(t, "m-7", trace)

	sampled, err := NewRuntimeInvoker(server.URL, time.Second, true, 0.25, discardLogger())
	require.NoError(t, err)
	sampled.random = func() float64 { return 0.9 }
	_, err = sampled.Invoke(context.Background(), "conv-1", chat.Invocation{})
	require.NoError(t, err)
	assert.Empty(t, trace)

	sampled.random = func() float64 { return 0.1 }
	_, err = sampled.Invoke(context.Background(), "conv-1", chat.Invocation{})
	require.NoError(t, err)
	assert.Len(t, trace, 36)
}

func TestRuntimeInvoker_Validation(t *testing.T) {
	_, err := NewRuntimeInvoker("", time.Second, false, 0, discardLogger())
	assert.Error(t, err)

	inv, err := NewRuntimeInvoker("http://runtime", 0, false, 5, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1.0, inv.sampleRate)
	_, err = inv.Invoke(context.Background(), "", chat.Invocation{})
	assert.Error(t, err)
}

func TestStripSSE(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripSSE("data: {\"a\":\r\ndata: 1}\r\n"))
	assert.Equal(t, "no frames", StripSSE("no frames"))
	assert.True(t, strings.HasPrefix(StripSSE("id: 1\ndata: x"), "x"))
}
