package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user-42", "user-42"},
		{"alice@example.com", "alice-example-com"},
		{"a b/c", "a-b-c"},
		{"", "default"},
		{"   ", "default"},
		{strings.Repeat("x", 80), strings.Repeat("x", 64)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}

func TestNamespaces(t *testing.T) {
	assert.Equal(t, "/strategy/semantic-default/actor/alice/", SemanticNamespace("", "alice"))
	assert.Equal(t, "/strategy/s1/actor/bob-smith/character/", CharacterNamespace("s1", "bob smith"))
	assert.Equal(t, "/strategy/s1/actor/default/", SemanticNamespace("s1", ""))
}

func TestRank(t *testing.T) {
	now := time.Now()
	recs := []Record{
		{ID: "1", Text: "The dragon sleeps in the cave", UpdatedAt: now.Add(-time.Hour)},
		{ID: "2", Text: "A merchant sells rope", UpdatedAt: now},
		{ID: "3", Text: "The cave entrance is hidden", UpdatedAt: now.Add(-2 * time.Hour)},
		{ID: "4", Text: "Dragon attacks the cave village", UpdatedAt: now.Add(-3 * time.Hour)},
	}

	got := Rank(recs, "Dragon cave?", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "The dragon sleeps in the cave", got[0])
	assert.Equal(t, "Dragon attacks the cave village", got[1])

	assert.Empty(t, Rank(recs, "dragon", 0))
	assert.Empty(t, Rank(nil, "dragon", 5))
	assert.Len(t, Rank(recs, "", 10), 4)
}

func TestMockStore(t *testing.T) {
	ctx := context.Background()
	m := NewMockStore()
	ns := []string{SemanticNamespace("", "alice"), CharacterNamespace("", "alice")}

	require.NoError(t, m.SaveRecord(ctx, "character-profile-1", ns, "Character profile: Name=Aldric"))
	require.NoError(t, m.SaveRecord(ctx, "character-profile-1", ns, "Character profile: Name=Aldric the Bold"))

	for _, n := range ns {
		assert.Equal(t, map[string]string{"character-profile-1": "Character profile: Name=Aldric the Bold"}, m.Records(n))
	}

	got, err := m.Retrieve(ctx, ns[1], CharacterQuery, CharacterTopK)
	require.NoError(t, err)
	assert.Equal(t, []string{"Character profile: Name=Aldric the Bold"}, got)
	assert.Equal(t, []string{ns[1]}, m.RetrieveCalls)

	require.NoError(t, m.CreateEvent(ctx, Event{ActorID: "alice", SessionID: "s", Role: RoleUser, Text: "hi"}))
	events := m.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].CreatedAt.IsZero())
	assert.Equal(t, []string{"character-profile-1"}, m.RecordIDs("character-profile-"))
}
