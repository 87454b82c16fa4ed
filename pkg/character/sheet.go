package character

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwebster45206/d20"
)

const (
	defaultText  = "Unknown"
	defaultLevel = 1
	defaultStat  = 10
	defaultHP    = 10
	defaultAC    = 10
)

// Stats holds the six core ability scores. Nil fields render with defaults;
// a provided zero is kept.
type Stats struct {
	Strength     *int `json:"strength,omitempty"`
	Dexterity    *int `json:"dexterity,omitempty"`
	Constitution *int `json:"constitution,omitempty"`
	Intelligence *int `json:"intelligence,omitempty"`
	Wisdom       *int `json:"wisdom,omitempty"`
	Charisma     *int `json:"charisma,omitempty"`
}

// HP is current and maximum hit points. Nil fields render with defaults.
type HP struct {
	Current *int `json:"current,omitempty"`
	Max     *int `json:"max,omitempty"`
}

// Sheet is the player character a client attaches to a conversation.
// It is read-only to the pipeline.
type Sheet struct {
	Name       string    `json:"name,omitempty"`
	Race       string    `json:"race,omitempty"`
	Class      string    `json:"class,omitempty"`
	Level      *int      `json:"level,omitempty"`
	Stats      Stats     `json:"stats"`
	HP         HP        `json:"hp"`
	ArmorClass *int      `json:"armorClass,omitempty"`
	Inventory  Inventory `json:"inventory,omitempty"`
}

func (s *Sheet) DisplayName() string  { return orDefault(s.Name) }
func (s *Sheet) DisplayRace() string  { return orDefault(s.Race) }
func (s *Sheet) DisplayClass() string { return orDefault(s.Class) }

func (s *Sheet) DisplayLevel() int { return intOr(s.Level, defaultLevel) }

func (s *Sheet) CurrentHP() int { return intOr(s.HP.Current, defaultHP) }
func (s *Sheet) MaxHP() int     { return intOr(s.HP.Max, defaultHP) }
func (s *Sheet) AC() int        { return intOr(s.ArmorClass, defaultAC) }

// Scores returns the ability scores with defaults applied, in sheet order.
func (s *Sheet) Scores() [6]int {
	return [6]int{
		intOr(s.Stats.Strength, defaultStat),
		intOr(s.Stats.Dexterity, defaultStat),
		intOr(s.Stats.Constitution, defaultStat),
		intOr(s.Stats.Intelligence, defaultStat),
		intOr(s.Stats.Wisdom, defaultStat),
		intOr(s.Stats.Charisma, defaultStat),
	}
}

func attributes(scores [6]int) map[string]int {
	return map[string]int{
		"strength":     scores[0],
		"dexterity":    scores[1],
		"constitution": scores[2],
		"intelligence": scores[3],
		"wisdom":       scores[4],
		"charisma":     scores[5],
	}
}

// Validate builds a d20 actor from the sheet to reject impossible values.
func (s *Sheet) Validate() error {
	if s.DisplayLevel() < 0 {
		return fmt.Errorf("level cannot be negative: %d", s.DisplayLevel())
	}
	if s.CurrentHP() < 0 {
		return fmt.Errorf("current hp cannot be negative: %d", s.CurrentHP())
	}
	if s.CurrentHP() > s.MaxHP() {
		return fmt.Errorf("current hp %d exceeds max hp %d", s.CurrentHP(), s.MaxHP())
	}
	if _, err := s.Actor(); err != nil {
		return err
	}
	return nil
}

// Actor converts the sheet into a d20 actor.
func (s *Sheet) Actor() (*d20.Actor, error) {
	id := strings.ToLower(strings.ReplaceAll(s.DisplayName(), " ", "-"))
	actor, err := d20.NewActor(id).
		WithHP(s.MaxHP()).
		WithAC(s.AC()).
		WithAttributes(attributes(s.Scores())).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	if s.CurrentHP() != s.MaxHP() {
		if err := actor.SetHP(s.CurrentHP()); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return actor, nil
}

// Item is an inventory entry. Clients send either a bare string or an object
// with name or id and an optional quantity of any JSON type.
type Item struct {
	Name     string          `json:"name,omitempty"`
	ID       string          `json:"id,omitempty"`
	Quantity json.RawMessage `json:"quantity,omitempty"`

	text    string
	isText  bool
	isEmpty bool
}

// TextItem returns a plain string inventory entry.
func TextItem(s string) Item {
	return Item{text: s, isText: true}
}

func (it *Item) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*it = Item{isEmpty: true}
		return nil
	case strings.HasPrefix(trimmed, "{"):
		type alias Item
		var a alias
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*it = Item(a)
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*it = TextItem(s)
		return nil
	default:
		// numbers and booleans are kept as their literal text
		*it = TextItem(trimmed)
		return nil
	}
}

func (it Item) MarshalJSON() ([]byte, error) {
	if it.isEmpty {
		return []byte("null"), nil
	}
	if it.isText {
		return json.Marshal(it.text)
	}
	type alias Item
	return json.Marshal(alias(it))
}

// Description renders the item as shown to the model, or "" when the item
// should be omitted.
func (it Item) Description() string {
	if it.isEmpty {
		return ""
	}
	if it.isText {
		return strings.TrimSpace(it.text)
	}
	name := it.Name
	if name == "" {
		name = it.ID
	}
	if name == "" {
		name = "Unknown item"
	}
	q := FormatQuantity(it.Quantity)
	if q == "" || q == "1" {
		return name
	}
	return name + " x" + q
}

// Inventory accepts a JSON array or a single item.
type Inventory []Item

func (inv *Inventory) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*inv = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*inv = items
		return nil
	}
	var single Item
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*inv = Inventory{single}
	return nil
}

// Descriptions returns the rendered items, skipping empty entries.
func (inv Inventory) Descriptions() []string {
	out := make([]string, 0, len(inv))
	for _, it := range inv {
		if d := it.Description(); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// FormatQuantity renders a raw JSON quantity. Missing means 1, booleans are
// 1 or 0, integral numbers drop their decimals, other numbers lose trailing
// zeros, and anything else is shown as text.
func FormatQuantity(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "1"
	}
	switch trimmed {
	case "true":
		return "1"
	case "false":
		return "0"
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return trimmed
		}
		if n, ok := formatNumber(strings.TrimSpace(s)); ok {
			return n
		}
		return s
	}
	if n, ok := formatNumber(trimmed); ok {
		return n
	}
	return trimmed
}

var errNotNumber = errors.New("not a number")

func formatNumber(s string) (string, bool) {
	f, err := parseDecimal(s)
	if err != nil {
		return "", false
	}
	if f == 0 {
		return "0", true
	}
	if math.Trunc(f) == f {
		return strconv.FormatFloat(f, 'f', 0, 64), true
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	if out == "" || out == "-" {
		return "0", true
	}
	return out, true
}

func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, errNotNumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	return f, nil
}

func orDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return defaultText
	}
	return s
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
