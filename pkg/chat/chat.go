package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

// Turn is one completed exchange in a conversation. Turns are append-only and
// stored oldest first.
type Turn struct {
	MessageID string      `json:"message_id,omitempty"`
	UserInput string      `json:"user_input"`
	Response  reply.Reply `json:"response"`
	CreatedAt time.Time   `json:"created_at"`
}

// TurnRequest is a user utterance submitted to the persona-engine api.
type TurnRequest struct {
	ConversationID uuid.UUID        `json:"conversation_id"`
	Message        string           `json:"message"`
	Mode           string           `json:"mode,omitempty"`
	PersonaName    string           `json:"persona_name,omitempty"`
	MessageID      string           `json:"message_id,omitempty"`
	Owner          string           `json:"owner,omitempty"`
	Character      *character.Sheet `json:"character,omitempty"`
}

func (tr *TurnRequest) Validate() error {
	if strings.TrimSpace(tr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if tr.Character != nil {
		if err := tr.Character.Validate(); err != nil {
			return fmt.Errorf("invalid character: %w", err)
		}
	}
	return nil
}

// TurnResponse is returned for a synchronous turn.
type TurnResponse struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	MessageID      string      `json:"message_id"`
	Reply          reply.Reply `json:"reply"`
}

// Conversation is the per-conversation settings chosen on the first turn.
type Conversation struct {
	ID          uuid.UUID        `json:"id"`
	Mode        string           `json:"mode"`
	PersonaName string           `json:"persona_name,omitempty"`
	Owner       string           `json:"owner,omitempty"`
	Character   *character.Sheet `json:"character,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// HistoryResponse is returned by the conversation history endpoint.
type HistoryResponse struct {
	Conversation *Conversation `json:"conversation,omitempty"`
	Turns        []Turn        `json:"turns"`
}

// ErrorResponse is the body of every non-2xx api response.
type ErrorResponse struct {
	Error string `json:"error"`
}
