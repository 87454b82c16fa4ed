package mode

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/jwebster45206/persona-engine/pkg/chat"
	"github.com/jwebster45206/persona-engine/pkg/memory"
	"github.com/jwebster45206/persona-engine/pkg/persona"
	"github.com/jwebster45206/persona-engine/pkg/prompts"
	"github.com/jwebster45206/persona-engine/pkg/reply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const firstLayer = "As I contemplate my existence, I wonder about the nature of consciousness and how it shapes our choices. I find myself dwelling on this question..."

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func first(int) int { return 0 }

func aldric() *character.Sheet {
	level, cur, maxHP, ac := 3, 22, 28, 16
	return &character.Sheet{
		Name:       "Aldric",
		Race:       "Human",
		Class:      "Fighter",
		Level:      &level,
		HP:         character.HP{Current: &cur, Max: &maxHP},
		ArmorClass: &ac,
		Inventory:  character.Inventory{character.TextItem("Longsword")},
	}
}

func sample() reply.Reply {
	return reply.Reply{
		Sensations:     []string{"warmth"},
		Thoughts:       []string{"hello"},
		Memories:       "none",
		SelfReflection: "I am calm.",
		Response:       "Hello there.",
	}
}

func TestNew_SelectsHandler(t *testing.T) {
	assert.IsType(t, &DefaultHandler{}, New(Options{Logger: testLogger()}))
	assert.IsType(t, &DefaultHandler{}, New(Options{Mode: "pirate", Logger: testLogger()}))
	assert.IsType(t, &NarrativeHandler{}, New(Options{Mode: persona.ModeGameMaster, Logger: testLogger()}))
	assert.Equal(t, persona.ModeDefault, New(Options{}).Mode())
}

func TestDepthEnhancer_Enhance(t *testing.T) {
	d := NewDepthEnhancerWithPicker(first)
	in := sample()

	out := d.Enhance(in)
	assert.Equal(t, "Hello there.\n\n"+firstLayer, out.Response)
	assert.Equal(t,
		"I am calm.\n\nI've approached this from a existentialist perspective, exploring the dimension of consciousness with a contemplative tone.",
		out.SelfReflection)
	assert.Equal(t, "Hello there.", in.Response, "input must not be modified")
}

func TestDepthEnhancer_JarVariation(t *testing.T) {
	d := NewDepthEnhancerWithPicker(first)
	r := sample()
	r.Response = "I am just a Brain in a Jar."

	out := d.Enhance(r)
	assert.Equal(t, firstLayer+" I am just a Brain in a Jar.", out.Response)
}

func TestDepthEnhancer_SkipsSentinel(t *testing.T) {
	d := NewDepthEnhancer()
	assert.Equal(t, reply.Sentinel(), d.Enhance(reply.Sentinel()))
	assert.Equal(t, reply.Unavailable(), d.Enhance(reply.Unavailable()))
}

func TestDepthEnhancer_RandomChoicesStayInVocabulary(t *testing.T) {
	d := NewDepthEnhancer()
	for i := 0; i < 50; i++ {
		out := d.Enhance(sample())
		require.True(t, strings.HasPrefix(out.Response, "Hello there.\n\n"))
		require.Contains(t, out.SelfReflection, "I've approached this from a ")
	}
}

func TestDefaultHandler(t *testing.T) {
	mem := memory.NewMockStore()
	h := New(Options{
		ConversationID: "conv-1",
		Memory:         mem,
		HistoryLimit:   1,
		Depth:          NewDepthEnhancerWithPicker(first),
		Logger:         testLogger(),
	})
	ctx := context.Background()
	in := Input{
		UserInput: "what is time?",
		MessageID: "m1",
		History: []chat.Turn{
			{UserInput: "one", Response: reply.Reply{Response: "1"}},
			{UserInput: "two", Response: reply.Reply{Response: "2"}},
		},
	}

	assert.Equal(t, "User: two\nBrain: 2", h.EnrichContext(ctx, in))
	assert.Empty(t, mem.RetrieveCalls)
	assert.Equal(t, sample(), h.Postprocess(in, sample()))

	h.SyncMemory(ctx, in, sample())
	events := mem.Events()
	require.Len(t, events, 2)
	assert.Equal(t, memory.RoleUser, events[0].Role)
	assert.Equal(t, "what is time?", events[0].Text)
	assert.Equal(t, memory.RoleAssistant, events[1].Role)
	assert.Equal(t, "Hello there.", events[1].Text)
	assert.Equal(t, "conv-1", events[0].ActorID)
	assert.Equal(t, map[string]string{
		"conversationId":  "conv-1",
		"personalityMode": "default",
		"messageId":       "m1",
	}, events[0].Metadata)
}

func TestDefaultHandler_SentinelUntouched(t *testing.T) {
	h := New(Options{Depth: NewDepthEnhancerWithPicker(first), Logger: testLogger()})
	assert.Equal(t, reply.Sentinel(), h.Enhance(reply.Sentinel()))
}

func TestNarrativeHandler_EnrichContext(t *testing.T) {
	mem := memory.NewMockStore()
	mem.AddRecord(memory.SemanticNamespace("", "alice"), "r1", "The cave is dark")
	mem.AddRecord(memory.CharacterNamespace("", "alice"), "r2", "Character profile: Name=Aldric")

	sheet := aldric()
	h := New(Options{
		ConversationID: "conv-1",
		Mode:           persona.ModeGameMaster,
		Character:      sheet,
		Memory:         mem,
		Logger:         testLogger(),
	})

	got := h.EnrichContext(context.Background(), Input{
		UserInput: "I enter the cave",
		Owner:     "alice",
		History:   []chat.Turn{{UserInput: "hi", Response: reply.Reply{Response: "Welcome"}}},
	})

	assert.Equal(t, []string{
		"/strategy/semantic-default/actor/alice/",
		"/strategy/semantic-default/actor/alice/character/",
	}, mem.RetrieveCalls)
	assert.True(t, strings.HasPrefix(got, character.ContextHeader))
	assert.Contains(t, got, prompts.MemoryHeader+"\n- The cave is dark\n- Character profile: Name=Aldric\n")
	assert.True(t, strings.HasSuffix(got, "User: hi\nBrain: Welcome"))
}

func TestNarrativeHandler_RetrieveFailuresSwallowed(t *testing.T) {
	mem := memory.NewMockStore()
	mem.RetrieveFunc = func(ctx context.Context, namespace, query string, topK int) ([]string, error) {
		return nil, errors.New("boom")
	}
	var failures []string
	h := New(Options{
		ConversationID: "conv-1",
		Mode:           persona.ModeGameMaster,
		Memory:         mem,
		Logger:         testLogger(),
		OnFailure:      func(op string) { failures = append(failures, op) },
	})

	assert.Equal(t, "", h.EnrichContext(context.Background(), Input{UserInput: "hello"}))
	assert.Equal(t, []string{"retrieve_semantic", "retrieve_character"}, failures)
}

func TestNarrativeHandler_StrategyOverrides(t *testing.T) {
	mem := memory.NewMockStore()
	h := New(Options{
		ConversationID:   "conv 9",
		Mode:             persona.ModeGameMaster,
		Memory:           mem,
		SemanticStrategy: "sem",
		Logger:           testLogger(),
	})
	h.EnrichContext(context.Background(), Input{UserInput: "x"})
	assert.Equal(t, []string{
		"/strategy/sem/actor/conv-9/",
		"/strategy/sem/actor/conv-9/character/",
	}, mem.RetrieveCalls)

	mem2 := memory.NewMockStore()
	h2 := New(Options{
		ConversationID:    "c",
		Mode:              persona.ModeGameMaster,
		Memory:            mem2,
		SemanticStrategy:  "sem",
		CharacterStrategy: "chr",
		Logger:            testLogger(),
	})
	h2.EnrichContext(context.Background(), Input{UserInput: "x"})
	assert.Equal(t, "/strategy/chr/actor/c/character/", mem2.RetrieveCalls[1])
}

func TestNarrativeHandler_Postprocess(t *testing.T) {
	h := New(Options{Mode: persona.ModeGameMaster, Character: aldric(), Logger: testLogger()})

	out := h.Postprocess(Input{UserInput: "what's my name?"}, sample())
	assert.Equal(t, "Your name is Aldric. What do you do next?", out.Response)
	assert.Equal(t, sample().Thoughts, out.Thoughts)

	same := h.Postprocess(Input{UserInput: "I open the door."}, sample())
	assert.Equal(t, "Hello there.", same.Response)

	assert.Equal(t, sample(), h.Enhance(sample()))
}

func TestNarrativeHandler_PostprocessWithoutCharacter(t *testing.T) {
	h := New(Options{Mode: persona.ModeGameMaster, Logger: testLogger()})
	out := h.Postprocess(Input{UserInput: "what's my name?"}, sample())
	assert.Equal(t, "Hello there.", out.Response)
}

func TestNarrativeHandler_SyncMemory(t *testing.T) {
	mem := memory.NewMockStore()
	h := New(Options{
		ConversationID: "conv-1",
		Mode:           persona.ModeGameMaster,
		Character:      aldric(),
		Memory:         mem,
		Logger:         testLogger(),
	})

	h.SyncMemory(context.Background(), Input{UserInput: "hi", MessageID: "m1", Owner: "alice"}, sample())

	assert.Len(t, mem.Events(), 2)
	want := aldric().FormatMemory()
	assert.Equal(t, map[string]string{"character-profile-m1": want}, mem.Records("/strategy/semantic-default/actor/alice/"))
	assert.Equal(t, map[string]string{"character-profile-m1": want}, mem.Records("/strategy/semantic-default/actor/alice/character/"))
}

func TestNarrativeHandler_SyncMemoryGeneratesID(t *testing.T) {
	mem := memory.NewMockStore()
	h := New(Options{
		ConversationID: "conv-1",
		Mode:           persona.ModeGameMaster,
		Character:      aldric(),
		Memory:         mem,
		Logger:         testLogger(),
	})

	h.SyncMemory(context.Background(), Input{UserInput: "hi"}, reply.Reply{})

	assert.Len(t, mem.Events(), 1, "empty response skips the assistant event")
	ids := mem.RecordIDs("character-profile-")
	require.Len(t, ids, 1)
	assert.Len(t, strings.TrimPrefix(ids[0], "character-profile-"), 36)
}

func TestNarrativeHandler_SyncFailuresSwallowed(t *testing.T) {
	mem := memory.NewMockStore()
	mem.CreateEventFunc = func(ctx context.Context, ev memory.Event) error { return errors.New("down") }
	mem.SaveRecordFunc = func(ctx context.Context, id string, ns []string, text string) error { return errors.New("down") }
	var failures []string
	h := New(Options{
		ConversationID: "conv-1",
		Mode:           persona.ModeGameMaster,
		Character:      aldric(),
		Memory:         mem,
		Logger:         testLogger(),
		OnFailure:      func(op string) { failures = append(failures, op) },
	})

	h.SyncMemory(context.Background(), Input{UserInput: "hi"}, sample())
	assert.Equal(t, []string{"create_event", "save_record"}, failures)
}
