package character

import (
	"fmt"
	"strings"
)

const (
	ContextHeader = "=== PLAYER CHARACTER ==="
	contextFooter = "========================"
)

// FormatContext renders the sheet as the prompt block the model sees.
func (s *Sheet) FormatContext() string {
	sc := s.Scores()
	lines := []string{
		ContextHeader,
		"Name: " + s.DisplayName(),
		"Race: " + s.DisplayRace(),
		"Class: " + s.DisplayClass(),
		fmt.Sprintf("Level: %d", s.DisplayLevel()),
		"",
		"STATS:",
		fmt.Sprintf("  Strength: %d", sc[0]),
		fmt.Sprintf("  Dexterity: %d", sc[1]),
		fmt.Sprintf("  Constitution: %d", sc[2]),
		fmt.Sprintf("  Intelligence: %d", sc[3]),
		fmt.Sprintf("  Wisdom: %d", sc[4]),
		fmt.Sprintf("  Charisma: %d", sc[5]),
		"",
		fmt.Sprintf("HP: %d/%d", s.CurrentHP(), s.MaxHP()),
		fmt.Sprintf("Armor Class: %d", s.AC()),
		"",
		"INVENTORY: " + s.inventoryText(),
		contextFooter,
	}
	return strings.Join(lines, "\n")
}

// FormatMemory renders the compact single-line profile stored in long-term memory.
func (s *Sheet) FormatMemory() string {
	sc := s.Scores()
	return fmt.Sprintf(
		"Character profile: Name=%s; Race=%s; Class=%s; Level=%d; STR=%d DEX=%d CON=%d INT=%d WIS=%d CHA=%d; HP=%d/%d; ArmorClass=%d; Inventory=%s",
		s.DisplayName(), s.DisplayRace(), s.DisplayClass(), s.DisplayLevel(),
		sc[0], sc[1], sc[2], sc[3], sc[4], sc[5],
		s.CurrentHP(), s.MaxHP(), s.AC(), s.inventoryText(),
	)
}

func (s *Sheet) inventoryText() string {
	items := s.Inventory.Descriptions()
	if len(items) == 0 {
		return "Empty"
	}
	return strings.Join(items, ", ")
}
