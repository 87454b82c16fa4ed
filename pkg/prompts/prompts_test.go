package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/stretchr/testify/assert"
)

func turn(in, out string) chat.Turn {
	return chat.Turn{UserInput: in, Response: reply.Reply{Response: out}}
}

func TestBuilder_Build(t *testing.T) {
	got := New().
		WithPersona("\nYou are Brain.\n").
		WithContext("User: hi\nBrain: hello").
		WithUserInput("how are you?").
		Build()

	assert.True(t, strings.HasPrefix(got, "You are Brain.\n\nPrevious conversation:\nUser: hi\nBrain: hello\n\n"))
	assert.True(t, strings.HasSuffix(got, "}\nUser: how are you?\nAssistant:\n"))
	assert.Contains(t, got, ContinuityReminder)

	contractAt := strings.Index(got, ReplyContract)
	userAt := strings.LastIndex(got, "User: how are you?")
	assert.Greater(t, contractAt, 0)
	assert.Greater(t, userAt, contractAt)
}

func TestAssemble_Empty(t *testing.T) {
	assert.Equal(t, "", Assemble(nil, 100, nil, nil))
	assert.Equal(t, "", Assemble([]chat.Turn{}, 10, []string{"  ", ""}, nil))
}

func TestAssemble_HistoryWindow(t *testing.T) {
	history := []chat.Turn{turn("one", "1"), turn("two", "2"), turn("three", "3")}

	assert.Equal(t, "User: two\nBrain: 2\n\nUser: three\nBrain: 3", Assemble(history, 2, nil, nil))
	assert.Equal(t, "User: one\nBrain: 1\n\nUser: two\nBrain: 2\n\nUser: three\nBrain: 3", Assemble(history, 100, nil, nil))
	assert.Equal(t, "", Assemble(history, 0, nil, nil))
	assert.Equal(t, "", Assemble(history, -3, nil, nil))
}

func TestAssemble_BlockOrder(t *testing.T) {
	sheet := &character.Sheet{Name: "Aldric"}
	history := []chat.Turn{turn("hello", "greetings")}
	memories := []string{"Aldric fears spiders", " Aldric fears spiders ", "The tavern burned"}

	got := Assemble(history, 5, memories, sheet)
	blocks := strings.Split(got, "\n\n")

	assert.True(t, strings.HasPrefix(got, character.ContextHeader))
	memAt := strings.Index(got, MemoryHeader)
	histAt := strings.Index(got, "User: hello")
	assert.Greater(t, memAt, 0)
	assert.Greater(t, histAt, memAt)
	assert.Equal(t, "User: hello\nBrain: greetings", blocks[len(blocks)-1])

	assert.Equal(t, 1, strings.Count(got, "- Aldric fears spiders"))
	assert.Contains(t, got, MemoryHeader+"\n- Aldric fears spiders\n- The tavern burned\n=======================")
}

func TestDedupeMemories_NFC(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	assert.Equal(t, []string{composed}, DedupeMemories([]string{composed, decomposed}))
}
