package mode

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/jwebster45206/persona-engine/pkg/prompts"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

const characterRecordPrefix = "character-profile-"

// NarrativeHandler serves the game_master mode: it pulls long-term memory
// and the player character into the context and answers character questions
// from the sheet instead of the model.
type NarrativeHandler struct {
	baseHandler
}

func (h *NarrativeHandler) EnrichContext(ctx context.Context, in Input) string {
	return prompts.Assemble(in.History, h.opts.HistoryLimit, h.retrieve(ctx, in), h.opts.Character)
}

// retrieve returns semantic records followed by character records. A failed
// lookup contributes nothing.
func (h *NarrativeHandler) retrieve(ctx context.Context, in Input) []string {
	if h.opts.Memory == nil {
		return nil
	}
	actor := h.actorID(in.Owner)

	var records []string
	semantic, err := h.opts.Memory.Retrieve(ctx,
		memory.SemanticNamespace(h.semanticStrategy(), actor), in.UserInput, memory.SemanticTopK)
	if err != nil {
		h.fail("retrieve_semantic", err)
	} else {
		records = append(records, semantic...)
	}

	chars, err := h.opts.Memory.Retrieve(ctx,
		memory.CharacterNamespace(h.characterStrategy(), actor), memory.CharacterQuery, memory.CharacterTopK)
	if err != nil {
		h.fail("retrieve_character", err)
	} else {
		records = append(records, chars...)
	}
	return records
}

// Enhance is a no-op; narration stays focused on the adventure.
func (h *NarrativeHandler) Enhance(r reply.Reply) reply.Reply {
	return r
}

func (h *NarrativeHandler) Postprocess(in Input, r reply.Reply) reply.Reply {
	out := r.Clone()
	out.Response = character.EnforceRecall(h.opts.Character, in.UserInput, r.Response)
	return out
}

func (h *NarrativeHandler) SyncMemory(ctx context.Context, in Input, r reply.Reply) {
	h.recordEvents(ctx, in, r)
	if h.opts.Memory == nil || h.opts.Character == nil {
		return
	}

	actor := h.actorID(in.Owner)
	id := in.MessageID
	if id == "" {
		id = uuid.New().String()
	}
	namespaces := []string{
		memory.SemanticNamespace(h.semanticStrategy(), actor),
		memory.CharacterNamespace(h.characterStrategy(), actor),
	}
	if err := h.opts.Memory.SaveRecord(ctx, characterRecordPrefix+id, namespaces, h.opts.Character.FormatMemory()); err != nil {
		h.fail("save_record", err)
	}
}
