package reply

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const (
	fieldSensations     = "sensations"
	fieldThoughts       = "thoughts"
	fieldMemories       = "memories"
	fieldSelfReflection = "self_reflection"
	fieldResponse       = "response"

	aliasSelfReflection = "selfReflection"
)

var requiredFields = []string{
	fieldSensations,
	fieldThoughts,
	fieldMemories,
	fieldSelfReflection,
	fieldResponse,
}

var (
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*\\s*")
	closingFence = regexp.MustCompile("\\s*```$")
)

// Normalize validates and repairs a raw model reply. It never fails: anything
// that cannot be coerced into the schema becomes Sentinel().
//
// The chain is: complete mapping, then the mapping's nested "response" string,
// then the raw text, each with code fences stripped before decoding.
func Normalize(raw Raw) Reply {
	if raw.Fields != nil {
		if r, ok := fromMapping(raw.Fields); ok {
			return r
		}
		if nested, isString := raw.Fields[fieldResponse].(string); isString {
			if r, ok := fromText(nested); ok {
				return r
			}
		}
	}
	if raw.Text != "" {
		if r, ok := fromText(raw.Text); ok {
			return r
		}
	}
	return Sentinel()
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func fromText(s string) (Reply, bool) {
	cleaned := StripFences(s)
	if cleaned == "" {
		return Reply{}, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return Reply{}, false
	}
	if m == nil {
		return Reply{}, false
	}
	return fromMapping(m)
}

func fromMapping(m map[string]any) (Reply, bool) {
	reflection, hasReflection := m[fieldSelfReflection]
	if !hasReflection {
		reflection, hasReflection = m[aliasSelfReflection]
	}
	if !hasReflection {
		return Reply{}, false
	}
	for _, key := range requiredFields {
		if key == fieldSelfReflection {
			continue
		}
		if _, ok := m[key]; !ok {
			return Reply{}, false
		}
	}

	return Reply{
		Sensations:      toStrings(m[fieldSensations]),
		Thoughts:        toStrings(m[fieldThoughts]),
		Memories:        toString(m[fieldMemories]),
		SelfReflection:  toString(reflection),
		Response:        toString(m[fieldResponse]),
		QuestTitle:      toString(m["quest_title"]),
		QuestSetting:    toString(m["quest_setting"]),
		QuestTone:       toString(m["quest_tone"]),
		QuestDifficulty: toString(m["quest_difficulty"]),
	}, true
}

// toStrings accepts an array (elements stringified) or a single scalar.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, toString(e))
		}
		return out
	default:
		return []string{toString(t)}
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
