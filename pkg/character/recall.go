package character

import (
	"fmt"
	"regexp"
	"strings"
)

// Fields is the set of sheet fields a player asked about.
type Fields uint16

const (
	FieldName Fields = 1 << iota
	FieldRace
	FieldClass
	FieldLevel
	FieldStats
	FieldHP
	FieldArmorClass
	FieldInventory

	AllFields = FieldName | FieldRace | FieldClass | FieldLevel | FieldStats | FieldHP | FieldArmorClass | FieldInventory
)

// Has reports whether every field in f is set.
func (fs Fields) Has(f Fields) bool { return fs&f == f }

const recallClosing = " What do you do next?"

var (
	questionPattern = regexp.MustCompile(`\b(what|who|tell|remind|show|list|do you know|can you)\b`)

	fieldPatterns = []struct {
		field   Fields
		pattern *regexp.Regexp
	}{
		{FieldName, regexp.MustCompile(`\b(who am i|what(?:'s| is) my name|tell me my name|remind me(?: of)? my name)\b`)},
		{FieldRace, regexp.MustCompile(`\b(what(?:'s| is) my race|tell me my race|remind me(?: of)? my race)\b`)},
		{FieldClass, regexp.MustCompile(`\b(what(?:'s| is) my class|tell me my class|remind me(?: of)? my class)\b`)},
		{FieldLevel, regexp.MustCompile(`\b(what(?:'s| is) my level|tell me my level|remind me(?: of)? my level)\b`)},
		{FieldStats, regexp.MustCompile(`\b(my stats?|my attributes?|strength|dexterity|constitution|intelligence|wisdom|charisma)\b`)},
		{FieldHP, regexp.MustCompile(`\b(my hp|my health|hit points)\b`)},
		{FieldArmorClass, regexp.MustCompile(`\b(my armor class|my ac|armor class|ac)\b`)},
		{FieldInventory, regexp.MustCompile(`\b(my inventory|inventory)\b`)},
		{AllFields, regexp.MustCompile(`\b(character sheet|my character)\b`)},
	}

	apostrophes = strings.NewReplacer("’", "'", "‘", "'")
)

// RequestedFields detects which sheet facts the input asks about. Inputs that
// are not questions never request anything.
func RequestedFields(input string) Fields {
	normalized := apostrophes.Replace(strings.ToLower(input))
	if !strings.Contains(normalized, "?") && !questionPattern.MatchString(normalized) {
		return 0
	}
	var fields Fields
	for _, fp := range fieldPatterns {
		if fp.pattern.MatchString(normalized) {
			fields |= fp.field
		}
	}
	return fields
}

// FactResponse answers the requested fields straight from the sheet, in a
// fixed order, closing with an invitation to continue.
func (s *Sheet) FactResponse(fields Fields) string {
	var parts []string
	if fields.Has(FieldName) {
		parts = append(parts, fmt.Sprintf("Your name is %s.", s.DisplayName()))
	}
	if fields.Has(FieldRace) {
		parts = append(parts, fmt.Sprintf("You are %s.", s.DisplayRace()))
	}
	if fields.Has(FieldClass) {
		parts = append(parts, fmt.Sprintf("Your class is %s.", s.DisplayClass()))
	}
	if fields.Has(FieldLevel) {
		parts = append(parts, fmt.Sprintf("You are level %d.", s.DisplayLevel()))
	}
	if fields.Has(FieldStats) {
		sc := s.Scores()
		parts = append(parts, fmt.Sprintf("Your stats are STR %d, DEX %d, CON %d, INT %d, WIS %d, CHA %d.",
			sc[0], sc[1], sc[2], sc[3], sc[4], sc[5]))
	}
	if fields.Has(FieldHP) {
		parts = append(parts, fmt.Sprintf("Your HP is %d/%d.", s.CurrentHP(), s.MaxHP()))
	}
	if fields.Has(FieldArmorClass) {
		parts = append(parts, fmt.Sprintf("Your armor class is %d.", s.AC()))
	}
	if fields.Has(FieldInventory) {
		parts = append(parts, fmt.Sprintf("Your inventory is %s.", s.inventoryText()))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Your character is %s, a level %d %s %s.",
			s.DisplayName(), s.DisplayLevel(), s.DisplayRace(), s.DisplayClass()))
	}
	return strings.Join(parts, " ") + recallClosing
}

// EnforceRecall replaces response with sheet facts when the input is a
// question about the character. A nil sheet leaves response untouched.
func EnforceRecall(s *Sheet, input, response string) string {
	if s == nil {
		return response
	}
	fields := RequestedFields(input)
	if fields == 0 {
		return response
	}
	return s.FactResponse(fields)
}
