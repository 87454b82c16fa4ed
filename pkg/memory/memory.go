package memory

import (
	"context"
	"regexp"
	"strings"
	"time"
)

const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"

	DefaultStrategyID = "semantic-default"

	// CharacterQuery is the fixed search used to recall the player character.
	CharacterQuery = "player character name race class stats inventory hp armor class"

	SemanticTopK  = 5
	CharacterTopK = 3

	maxNamespacePart = 64
)

// Event is a short-term conversational event.
type Event struct {
	ActorID   string            `json:"actor_id"`
	SessionID string            `json:"session_id"`
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store is the long-term memory boundary. Implementations live in
// internal/memory; callers treat every failure as best-effort.
type Store interface {
	// Retrieve returns up to topK record texts from namespace ranked against query.
	Retrieve(ctx context.Context, namespace, query string, topK int) ([]string, error)
	// CreateEvent records a short-term event.
	CreateEvent(ctx context.Context, ev Event) error
	// SaveRecord writes one long-term record under every namespace. Saving the
	// same requestID again replaces the earlier text.
	SaveRecord(ctx context.Context, requestID string, namespaces []string, text string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Sanitize makes s safe to embed in a namespace path: characters outside
// [A-Za-z0-9_-] become "-", the result is capped at 64 characters, and an
// empty result becomes "default".
func Sanitize(s string) string {
	out := unsafeChars.ReplaceAllString(strings.TrimSpace(s), "-")
	if len(out) > maxNamespacePart {
		out = out[:maxNamespacePart]
	}
	if out == "" {
		return "default"
	}
	return out
}

// SemanticNamespace is /strategy/<strategy>/actor/<actor>/.
func SemanticNamespace(strategyID, actorID string) string {
	return "/strategy/" + Sanitize(strategyOr(strategyID)) + "/actor/" + Sanitize(actorID) + "/"
}

// CharacterNamespace is /strategy/<strategy>/actor/<actor>/character/.
func CharacterNamespace(strategyID, actorID string) string {
	return SemanticNamespace(strategyID, actorID) + "character/"
}

func strategyOr(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultStrategyID
	}
	return id
}
