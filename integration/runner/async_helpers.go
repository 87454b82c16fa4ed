package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

const (
	// TurnTimeout is max time to wait for a queued turn to complete
	TurnTimeout = 60 * time.Second
)

// AsyncTurnResponse is the response from the async turn endpoint
type AsyncTurnResponse struct {
	RequestID      string    `json:"request_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Status         string    `json:"status"`
}

// StreamEvent is one parsed SSE event
type StreamEvent struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
}

func postJSON(ctx context.Context, client *http.Client, url string, body any, want int, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d (expected %d): %s", url, resp.StatusCode, want, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PostChat runs a synchronous turn
func PostChat(ctx context.Context, client *http.Client, baseURL string, turn chat.TurnRequest) (*chat.TurnResponse, error) {
	var out chat.TurnResponse
	if err := postJSON(ctx, client, baseURL+"/v1/chat", turn, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostTurnAsync queues a turn and returns the accepted response
func PostTurnAsync(ctx context.Context, client *http.Client, baseURL string, turn chat.TurnRequest) (*AsyncTurnResponse, error) {
	var out AsyncTurnResponse
	if err := postJSON(ctx, client, baseURL+"/v1/turns", turn, http.StatusAccepted, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistory retrieves the conversation and its turns
func GetHistory(ctx context.Context, client *http.Client, baseURL string, conversationID uuid.UUID) (*chat.HistoryResponse, error) {
	url := fmt.Sprintf("%s/v1/conversations/%s", baseURL, conversationID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send history request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("conversations endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var history chat.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return &history, nil
}

// EventStream is an open SSE subscription for one conversation
type EventStream struct {
	ctx    context.Context
	events chan StreamEvent
	errc   chan error
	cancel context.CancelFunc
}

// OpenEventStream subscribes to conversation events and returns once the
// server has confirmed the subscription.
func OpenEventStream(ctx context.Context, client *http.Client, baseURL string, conversationID uuid.UUID) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	url := fmt.Sprintf("%s/v1/events/conversations/%s", baseURL, conversationID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client timeout would cut the stream short.
	streamClient := &http.Client{Transport: client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to SSE: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	s := &EventStream{
		ctx:    ctx,
		events: make(chan StreamEvent, 16),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	connected := make(chan struct{})
	go s.read(resp.Body, connected)

	select {
	case <-connected:
		return s, nil
	case err := <-s.errc:
		cancel()
		return nil, fmt.Errorf("SSE stream closed before connecting: %w", err)
	case <-time.After(10 * time.Second):
		cancel()
		return nil, fmt.Errorf("timeout waiting for SSE connection")
	}
}

func (s *EventStream) read(body io.ReadCloser, connected chan struct{}) {
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && eventType != "":
			if eventType == "connected" {
				close(connected)
			} else {
				ev := StreamEvent{Type: eventType}
				_ = json.Unmarshal([]byte(data), &ev)
				select {
				case s.events <- ev:
				case <-s.ctx.Done():
					return
				}
			}
			eventType, data = "", ""
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.errc <- err
}

// Close ends the subscription
func (s *EventStream) Close() {
	s.cancel()
}

// WaitForTurn blocks until the request completes or fails and returns the reply
func (s *EventStream) WaitForTurn(ctx context.Context, requestID string, timeout time.Duration) (reply.Reply, error) {
	deadline := time.After(timeout)
	for {
		select {
		case <-ctx.Done():
			return reply.Reply{}, ctx.Err()
		case <-deadline:
			return reply.Reply{}, fmt.Errorf("timeout waiting for turn %s (waited %v)", requestID, timeout)
		case err := <-s.errc:
			return reply.Reply{}, fmt.Errorf("event stream ended: %w", err)
		case ev := <-s.events:
			if ev.RequestID != requestID {
				continue
			}
			switch ev.Type {
			case "turn.completed":
				return decodeReply(ev.Data["reply"])
			case "turn.failed":
				return reply.Reply{}, fmt.Errorf("turn failed: %v", ev.Data["error"])
			}
		}
	}
}

func decodeReply(v any) (reply.Reply, error) {
	var r reply.Reply
	data, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("failed to re-encode reply: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("failed to decode reply: %w", err)
	}
	return r, nil
}
