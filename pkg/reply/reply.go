package reply

import (
	"encoding/json"
	"slices"
)

// Reply is the structured response every persona turn produces.
// The five base fields are always present once a reply leaves Normalize.
// Quest fields are only populated for the game master persona.
type Reply struct {
	Sensations     []string `json:"sensations"`
	Thoughts       []string `json:"thoughts"`
	Memories       string   `json:"memories"`
	SelfReflection string   `json:"self_reflection"`
	Response       string   `json:"response"`

	QuestTitle      string `json:"quest_title,omitempty"`
	QuestSetting    string `json:"quest_setting,omitempty"`
	QuestTone       string `json:"quest_tone,omitempty"`
	QuestDifficulty string `json:"quest_difficulty,omitempty"`
}

// MarshalJSON keeps list fields as arrays even when empty.
func (r Reply) MarshalJSON() ([]byte, error) {
	type Alias Reply
	a := Alias(r)
	if a.Sensations == nil {
		a.Sensations = []string{}
	}
	if a.Thoughts == nil {
		a.Thoughts = []string{}
	}
	return json.Marshal(a)
}

// Clone returns a deep copy so callers can modify list fields freely.
func (r Reply) Clone() Reply {
	c := r
	c.Sensations = slices.Clone(r.Sensations)
	c.Thoughts = slices.Clone(r.Thoughts)
	return c
}

// HasQuest reports whether any quest field is set.
func (r Reply) HasQuest() bool {
	return r.QuestTitle != "" || r.QuestSetting != "" || r.QuestTone != "" || r.QuestDifficulty != ""
}

// Raw is whatever a model invocation handed back before validation:
// either a decoded mapping, plain text, or both.
type Raw struct {
	Fields map[string]any
	Text   string
}

// FromText wraps plain model output.
func FromText(s string) Raw {
	return Raw{Text: s}
}

// FromFields wraps an already decoded mapping.
func FromFields(m map[string]any) Raw {
	return Raw{Fields: m}
}
