package mode

import (
	"context"
	"log/slog"
	"os"

	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/jwebster45206/persona-engine/pkg/persona"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

// DefaultHistoryLimit is how many prior turns go into the context.
const DefaultHistoryLimit = 100

// Input carries the per-turn values a handler needs.
type Input struct {
	UserInput string
	MessageID string
	Owner     string
	History   []chat.Turn
}

// Handler holds the behavior that differs between persona modes. A handler
// is created once per conversation and is not shared across conversations.
type Handler interface {
	Mode() string
	// EnrichContext builds the context block for the prompt.
	EnrichContext(ctx context.Context, in Input) string
	// Enhance runs after quest metadata is applied.
	Enhance(r reply.Reply) reply.Reply
	// Postprocess may rewrite the reply based on the user input.
	Postprocess(in Input, r reply.Reply) reply.Reply
	// SyncMemory writes the finished turn to long-term memory. Failures are
	// logged and never returned.
	SyncMemory(ctx context.Context, in Input, r reply.Reply)
}

// Options configures New.
type Options struct {
	ConversationID    string
	Mode              string
	Character         *character.Sheet
	Memory            memory.Store // nil disables memory
	HistoryLimit      int
	SemanticStrategy  string
	CharacterStrategy string
	Depth             *DepthEnhancer
	Logger            *slog.Logger
	// OnFailure is called with the failed operation name for each swallowed
	// memory error.
	OnFailure func(op string)
}

// New selects the handler for opts.Mode. Unknown modes get the default handler.
func New(opts Options) Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Mode == "" {
		opts.Mode = persona.ModeDefault
	}
	if opts.OnFailure == nil {
		opts.OnFailure = func(string) {}
	}

	base := baseHandler{opts: opts}
	if opts.Mode == persona.ModeGameMaster {
		return &NarrativeHandler{baseHandler: base}
	}
	if opts.Depth == nil {
		opts.Depth = NewDepthEnhancer()
		base.opts = opts
	}
	return &DefaultHandler{baseHandler: base}
}

type baseHandler struct {
	opts Options
}

func (b *baseHandler) Mode() string { return b.opts.Mode }

func (b *baseHandler) actorID(owner string) string {
	if owner == "" {
		owner = b.opts.ConversationID
	}
	return memory.Sanitize(owner)
}

func (b *baseHandler) semanticStrategy() string {
	if b.opts.SemanticStrategy != "" {
		return b.opts.SemanticStrategy
	}
	return memory.DefaultStrategyID
}

func (b *baseHandler) characterStrategy() string {
	if b.opts.CharacterStrategy != "" {
		return b.opts.CharacterStrategy
	}
	return b.semanticStrategy()
}

func (b *baseHandler) fail(op string, err error) {
	b.opts.Logger.Warn("Memory operation failed",
		"operation", op,
		"conversation_id", b.opts.ConversationID,
		"error", err)
	b.opts.OnFailure(op)
}

// recordEvents writes the USER event and, when there is response text, the
// ASSISTANT event.
func (b *baseHandler) recordEvents(ctx context.Context, in Input, r reply.Reply) {
	if b.opts.Memory == nil {
		return
	}
	actor := b.actorID(in.Owner)
	meta := map[string]string{
		"conversationId":  b.opts.ConversationID,
		"personalityMode": b.opts.Mode,
	}
	if in.MessageID != "" {
		meta["messageId"] = in.MessageID
	}

	ev := memory.Event{
		ActorID:   actor,
		SessionID: b.opts.ConversationID,
		Role:      memory.RoleUser,
		Text:      in.UserInput,
		Metadata:  meta,
	}
	if err := b.opts.Memory.CreateEvent(ctx, ev); err != nil {
		b.fail("create_event", err)
		return
	}
	if r.Response == "" {
		return
	}
	ev.Role = memory.RoleAssistant
	ev.Text = r.Response
	if err := b.opts.Memory.CreateEvent(ctx, ev); err != nil {
		b.fail("create_event", err)
	}
}
