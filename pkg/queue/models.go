package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/chat"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeTurn is a user turn submitted through POST /v1/turns
	RequestTypeTurn RequestType = "turn"
)

// Request is one queued unit of work for the worker.
type Request struct {
	RequestID      string           `json:"request_id"`
	Type           RequestType      `json:"type"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	Turn           chat.TurnRequest `json:"turn"`
	Attempts       int              `json:"attempts,omitempty"`
	EnqueuedAt     time.Time        `json:"enqueued_at"`
}

// NewTurnRequest wraps a turn for the queue, assigning ids where missing.
func NewTurnRequest(turn chat.TurnRequest) *Request {
	if turn.ConversationID == uuid.Nil {
		turn.ConversationID = uuid.New()
	}
	if turn.MessageID == "" {
		turn.MessageID = uuid.New().String()
	}
	return &Request{
		RequestID:      uuid.New().String(),
		Type:           RequestTypeTurn,
		ConversationID: turn.ConversationID,
		Turn:           turn,
		EnqueuedAt:     time.Now(),
	}
}

// Validate checks that the request can be processed.
func (r *Request) Validate() error {
	if r.RequestID == "" {
		return errors.New("request_id is required")
	}
	if r.Type != RequestTypeTurn {
		return fmt.Errorf("unknown request type: %q", r.Type)
	}
	if r.ConversationID == uuid.Nil {
		return errors.New("conversation_id is required")
	}
	return r.Turn.Validate()
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
