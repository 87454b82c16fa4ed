package mode

import (
	"context"

	"github.com/jwebster45206/persona-engine/pkg/prompts"
	"github.com/jwebster45206/persona-engine/pkg/reply"
)

// DefaultHandler serves every mode except game_master.
type DefaultHandler struct {
	baseHandler
}

func (h *DefaultHandler) EnrichContext(ctx context.Context, in Input) string {
	return prompts.Assemble(in.History, h.opts.HistoryLimit, nil, nil)
}

func (h *DefaultHandler) Enhance(r reply.Reply) reply.Reply {
	return h.opts.Depth.Enhance(r)
}

func (h *DefaultHandler) Postprocess(in Input, r reply.Reply) reply.Reply {
	return r
}

func (h *DefaultHandler) SyncMemory(ctx context.Context, in Input, r reply.Reply) {
	h.recordEvents(ctx, in, r)
}
