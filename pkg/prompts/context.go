package prompts

import (
	"strings"

	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"golang.org/x/text/unicode/norm"
)

const (
	// ReplyLabel prefixes the persona's side of each history turn.
	ReplyLabel = "Brain"

	MemoryHeader = "=== AGENTCORE MEMORY ==="
	memoryFooter = "======================="
)

// Assemble builds the conversation context passed to the persona prompt.
// Blocks appear in a fixed order: character sheet, retrieved memories, then
// the last n turns of history (oldest first). Empty inputs yield "".
func Assemble(history []chat.Turn, n int, memories []string, sheet *character.Sheet) string {
	var blocks []string
	if sheet != nil {
		blocks = append(blocks, sheet.FormatContext())
	}
	if mem := FormatMemories(memories); mem != "" {
		blocks = append(blocks, mem)
	}
	if h := FormatHistory(history, n); h != "" {
		blocks = append(blocks, h)
	}
	return strings.Join(blocks, "\n\n")
}

// FormatHistory renders the last n turns. n <= 0 renders nothing.
func FormatHistory(history []chat.Turn, n int) string {
	if n <= 0 || len(history) == 0 {
		return ""
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	turns := make([]string, 0, len(history))
	for _, t := range history {
		turns = append(turns, "User: "+t.UserInput+"\n"+ReplyLabel+": "+t.Response.Response)
	}
	return strings.Join(turns, "\n\n")
}

// FormatMemories renders unique memory records in insertion order. Records are
// compared after trimming and NFC normalization; blank records are dropped.
func FormatMemories(records []string) string {
	unique := DedupeMemories(records)
	if len(unique) == 0 {
		return ""
	}
	lines := make([]string, 0, len(unique)+2)
	lines = append(lines, MemoryHeader)
	for _, r := range unique {
		lines = append(lines, "- "+r)
	}
	lines = append(lines, memoryFooter)
	return strings.Join(lines, "\n")
}

// DedupeMemories returns the normalized, unique, non-blank records.
func DedupeMemories(records []string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		key := norm.NFC.String(strings.TrimSpace(r))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
