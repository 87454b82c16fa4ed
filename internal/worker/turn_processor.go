package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/internal/logger"
	"github.com/jwebster45206/persona-engine/internal/metrics"
	"github.com/jwebster45206/persona-engine/internal/services"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/jwebster45206/persona-engine/pkg/mode"
	"github.com/jwebster45206/persona-engine/pkg/persona"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/jwebster45206/persona-engine/pkg/storage"
	"github.com/jwebster45206/persona-engine/pkg/textfilter"
)

// ErrEmptyInvocation is returned when an invocation carries neither a prompt
// nor a user input to render one from.
var ErrEmptyInvocation = errors.New("invocation has no prompt or user_input")

// ProcessorConfig holds the per-deployment pipeline settings.
type ProcessorConfig struct {
	HistoryLimit      int
	SemanticStrategy  string
	CharacterStrategy string
	// Backend labels model metrics.
	Backend string
	// Depth overrides the random depth enhancer of the default mode.
	Depth *mode.DepthEnhancer
}

// TurnProcessor runs one conversation turn end to end. It is used by both the
// HTTP handlers (synchronously) and the worker (asynchronously).
type TurnProcessor struct {
	storage  storage.Storage
	invoker  services.Invoker
	personas *persona.Store
	memory   memory.Store
	cfg      ProcessorConfig
	logger   *slog.Logger
}

// NewTurnProcessor creates a processor. mem may be nil to run without
// long-term memory.
func NewTurnProcessor(
	store storage.Storage,
	invoker services.Invoker,
	personas *persona.Store,
	mem memory.Store,
	cfg ProcessorConfig,
	logger *slog.Logger,
) *TurnProcessor {
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = mode.DefaultHistoryLimit
	}
	if cfg.Backend == "" {
		cfg.Backend = "unknown"
	}
	return &TurnProcessor{
		storage:  store,
		invoker:  invoker,
		personas: personas,
		memory:   mem,
		cfg:      cfg,
		logger:   logger,
	}
}

// ProcessTurn loads the conversation, runs the reply pipeline, persists the
// turn and syncs memory. Model failures never surface as errors; they yield
// the technical-difficulties reply instead.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ConversationID == uuid.Nil {
		req.ConversationID = uuid.New()
	}
	if req.MessageID == "" {
		req.MessageID = uuid.New().String()
	}
	log := logger.ForTurn(p.logger, req.ConversationID.String(), req.MessageID)

	conv, err := p.conversation(ctx, req)
	if err != nil {
		metrics.TurnCompleted(req.Mode, metrics.OutcomeError)
		return nil, err
	}

	history, err := p.storage.LoadHistory(ctx, conv.ID)
	if err != nil {
		metrics.TurnCompleted(conv.Mode, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	handler := mode.New(mode.Options{
		ConversationID:    conv.ID.String(),
		Mode:              conv.Mode,
		Character:         conv.Character,
		Memory:            p.memory,
		HistoryLimit:      p.cfg.HistoryLimit,
		SemanticStrategy:  p.cfg.SemanticStrategy,
		CharacterStrategy: p.cfg.CharacterStrategy,
		Depth:             p.cfg.Depth,
		Logger:            log,
		OnFailure:         metrics.MemoryFailure,
	})
	in := mode.Input{
		UserInput: req.Message,
		MessageID: req.MessageID,
		Owner:     conv.Owner,
		History:   history,
	}

	cfg := p.personas.Get(conv.Mode)
	name := conv.PersonaName
	if name == "" {
		name = cfg.Name
	}

	contextText := handler.EnrichContext(ctx, in)
	inv := chat.Invocation{
		Prompt: p.personas.Render(conv.Mode, name, contextText, req.Message),
		Variables: map[string]string{
			"user_input": req.Message,
			"context":    contextText,
		},
		Persona: chat.InvocationPersona{
			Name:        name,
			Mode:        conv.Mode,
			Temperature: &cfg.Temperature,
			TopP:        &cfg.TopP,
		},
		Context: contextText,
		Message: chat.InvocationMessage{ID: req.MessageID, Owner: conv.Owner},
	}

	r, outcome := p.invoke(ctx, log, conv.ID.String(), inv)
	r = reply.ApplyQuest(r, conv.Mode, name)
	r = handler.Enhance(r)
	r = handler.Postprocess(in, r)
	r = textfilter.ForRating(cfg.ContentRating).Reply(r)

	turn := chat.Turn{
		MessageID: req.MessageID,
		UserInput: req.Message,
		Response:  r,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.storage.SaveResponse(ctx, conv.ID, turn); err != nil {
		log.Warn("Failed to persist turn", "error", err)
		metrics.PersistenceFailure()
	}

	handler.SyncMemory(ctx, in, r)
	metrics.TurnCompleted(conv.Mode, outcome)

	log.Info("Turn processed", "mode", conv.Mode, "outcome", outcome)
	return &chat.TurnResponse{
		ConversationID: conv.ID,
		MessageID:      req.MessageID,
		Reply:          r,
	}, nil
}

// ProcessInvocation serves the runtime contract: render when only variables
// are given, invoke, normalize and apply the quest rule. Mode handlers and
// persistence are not involved. A failed model call yields the bare
// technical-difficulties reply rather than an error. Quest metadata follows
// the payload's persona name, not the configured default.
func (p *TurnProcessor) ProcessInvocation(ctx context.Context, inv chat.Invocation) (reply.Reply, error) {
	modeKey := inv.Persona.Mode
	if modeKey == "" {
		modeKey = persona.ModeDefault
	}
	cfg := p.personas.Get(modeKey)
	name := inv.Persona.Name
	if name == "" {
		name = cfg.Name
	}

	if inv.Prompt == "" {
		userInput := inv.UserInput()
		if userInput == "" {
			return reply.Reply{}, ErrEmptyInvocation
		}
		inv.Prompt = p.personas.Render(modeKey, name, inv.ContextText(), userInput)
	}
	if inv.Persona.Temperature == nil {
		inv.Persona.Temperature = &cfg.Temperature
	}
	if inv.Persona.TopP == nil {
		inv.Persona.TopP = &cfg.TopP
	}

	sessionID := inv.Message.Owner
	if sessionID == "" {
		sessionID = inv.Message.ID
	}

	start := time.Now()
	raw, err := p.invoker.Invoke(ctx, sessionID, inv)
	metrics.ObserveInvocation(p.cfg.Backend, start)
	if err != nil {
		p.logger.Warn("Model invocation failed", "backend", p.cfg.Backend, "error", err, "message_id", inv.Message.ID)
		metrics.ModelError(p.cfg.Backend)
		return reply.Unavailable(), nil
	}
	return reply.ApplyQuest(reply.Normalize(raw), inv.Persona.Mode, inv.Persona.Name), nil
}

// conversation loads the stored settings or creates them on the first turn.
// A character sheet on a later turn replaces the stored one.
func (p *TurnProcessor) conversation(ctx context.Context, req chat.TurnRequest) (*chat.Conversation, error) {
	conv, err := p.storage.LoadConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	switch {
	case conv == nil:
		modeKey := req.Mode
		if modeKey == "" || !p.personas.Has(modeKey) {
			if modeKey != "" {
				p.logger.Warn("Unknown mode, using default", "mode", modeKey)
			}
			modeKey = persona.ModeDefault
		}
		conv = &chat.Conversation{
			ID:          req.ConversationID,
			Mode:        modeKey,
			PersonaName: req.PersonaName,
			Owner:       req.Owner,
			Character:   req.Character,
		}
	case req.Character != nil:
		conv.Character = req.Character
	default:
		return conv, nil
	}

	if err := p.storage.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	return conv, nil
}

func (p *TurnProcessor) invoke(ctx context.Context, log *slog.Logger, sessionID string, inv chat.Invocation) (reply.Reply, string) {
	start := time.Now()
	raw, err := p.invoker.Invoke(ctx, sessionID, inv)
	metrics.ObserveInvocation(p.cfg.Backend, start)
	if err != nil {
		log.Warn("Model invocation failed", "backend", p.cfg.Backend, "error", err)
		metrics.ModelError(p.cfg.Backend)
		return reply.Unavailable(), metrics.OutcomeUnavailable
	}

	r := reply.Normalize(raw)
	if reply.IsSentinel(r) {
		log.Warn("Model reply could not be normalized", "backend", p.cfg.Backend)
		return r, metrics.OutcomeUnavailable
	}
	return r, metrics.OutcomeOK
}
