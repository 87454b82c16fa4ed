package character

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aldricJSON = `{
	"name": "Aldric",
	"race": "Human",
	"class": "Fighter",
	"level": 3,
	"stats": {"strength": 16, "dexterity": 12, "constitution": 14, "intelligence": 10, "wisdom": 11, "charisma": 9},
	"hp": {"current": 22, "max": 28},
	"armorClass": 16,
	"inventory": ["Longsword", {"name": "Torch", "quantity": 3}, {"id": "rope"}, {"name": "Potion", "quantity": 2.50}, "  "]
}`

func loadAldric(t *testing.T) *Sheet {
	t.Helper()
	var s Sheet
	require.NoError(t, json.Unmarshal([]byte(aldricJSON), &s))
	return &s
}

func TestSheet_FormatContext(t *testing.T) {
	s := loadAldric(t)

	expected := "=== PLAYER CHARACTER ===\n" +
		"Name: Aldric\n" +
		"Race: Human\n" +
		"Class: Fighter\n" +
		"Level: 3\n" +
		"\n" +
		"STATS:\n" +
		"  Strength: 16\n" +
		"  Dexterity: 12\n" +
		"  Constitution: 14\n" +
		"  Intelligence: 10\n" +
		"  Wisdom: 11\n" +
		"  Charisma: 9\n" +
		"\n" +
		"HP: 22/28\n" +
		"Armor Class: 16\n" +
		"\n" +
		"INVENTORY: Longsword, Torch x3, rope, Potion x2.5\n" +
		"========================"

	assert.Equal(t, expected, s.FormatContext())
}

func TestSheet_Defaults(t *testing.T) {
	s := &Sheet{}

	assert.Equal(t,
		"Character profile: Name=Unknown; Race=Unknown; Class=Unknown; Level=1; STR=10 DEX=10 CON=10 INT=10 WIS=10 CHA=10; HP=10/10; ArmorClass=10; Inventory=Empty",
		s.FormatMemory())
	assert.NoError(t, s.Validate())
}

func TestSheet_FormatMemory(t *testing.T) {
	s := loadAldric(t)
	assert.Equal(t,
		"Character profile: Name=Aldric; Race=Human; Class=Fighter; Level=3; STR=16 DEX=12 CON=14 INT=10 WIS=11 CHA=9; HP=22/28; ArmorClass=16; Inventory=Longsword, Torch x3, rope, Potion x2.5",
		s.FormatMemory())
}

func TestInventory_SingleValue(t *testing.T) {
	var s Sheet
	require.NoError(t, json.Unmarshal([]byte(`{"inventory": {"name": "Shield"}}`), &s))
	assert.Equal(t, []string{"Shield"}, s.Inventory.Descriptions())
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"", "1"},
		{"null", "1"},
		{"true", "1"},
		{"false", "0"},
		{"4", "4"},
		{"4.0", "4"},
		{"1.50", "1.5"},
		{`"7"`, "7"},
		{`"a few"`, "a few"},
		{`""`, ""},
		{"1e20", "100000000000000000000"},
		{"100000000000000000000", "100000000000000000000"},
		{"20000000000000000000", "20000000000000000000"},
		{"0.0", "0"},
		{"-0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatQuantity(json.RawMessage(tt.raw)))
		})
	}
}

func TestItem_QuantityOneOrEmptyHasNoSuffix(t *testing.T) {
	var inv Inventory
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"Map","quantity":1},{"name":"Key","quantity":""},{"name":"Coin","quantity":true}]`), &inv))
	assert.Equal(t, []string{"Map", "Key", "Coin"}, inv.Descriptions())
}

func TestSheet_Validate(t *testing.T) {
	current, max := 30, 20
	s := &Sheet{HP: HP{Current: &current, Max: &max}}
	assert.Error(t, s.Validate())

	negative := -1
	s = &Sheet{HP: HP{Current: &negative}}
	assert.Error(t, s.Validate())

	assert.NoError(t, loadAldric(t).Validate())
}

func TestRequestedFields(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Fields
	}{
		{"name question", "what's my name?", FieldName},
		{"curly apostrophe", "What’s my name?", FieldName},
		{"who am i", "Who am I", FieldName},
		{"statement is ignored", "I check my inventory", 0},
		{"inventory question", "what is in my inventory", FieldInventory},
		{"stats and hp", "can you list my stats and my hp", FieldStats | FieldHP},
		{"armor class", "what's my ac?", FieldArmorClass},
		{"whole sheet", "show me my character sheet", AllFields},
		{"question without fields", "where is the tavern?", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RequestedFields(tt.input))
		})
	}
}

func TestEnforceRecall(t *testing.T) {
	s := loadAldric(t)

	assert.Equal(t, "Your name is Aldric. What do you do next?",
		EnforceRecall(s, "what's my name?", "The wind howls."))

	assert.Equal(t, "Your HP is 22/28. Your armor class is 16. What do you do next?",
		EnforceRecall(s, "remind me of my hp and armor class", "model text"))

	assert.Equal(t, "The wind howls.", EnforceRecall(s, "I open the door.", "The wind howls."))
	assert.Equal(t, "The wind howls.", EnforceRecall(nil, "what's my name?", "The wind howls."))
}

func TestFactResponse_AllFields(t *testing.T) {
	s := loadAldric(t)
	assert.Equal(t,
		"Your name is Aldric. You are Human. Your class is Fighter. You are level 3. "+
			"Your stats are STR 16, DEX 12, CON 14, INT 10, WIS 11, CHA 9. Your HP is 22/28. "+
			"Your armor class is 16. Your inventory is Longsword, Torch x3, rope, Potion x2.5. What do you do next?",
		s.FactResponse(AllFields))
}

func TestFactResponse_NoFields(t *testing.T) {
	s := loadAldric(t)
	assert.Equal(t, "Your character is Aldric, a level 3 Human Fighter. What do you do next?", s.FactResponse(0))
}

func TestItem_HugeQuantityKeepsDigits(t *testing.T) {
	var inv Inventory
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"Gold","quantity":1e20}]`), &inv))
	assert.Equal(t, []string{"Gold x100000000000000000000"}, inv.Descriptions())
}

func TestSheet_ProvidedZeroesAreKept(t *testing.T) {
	var s Sheet
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Wisp", "level": 0, "stats": {"strength": 0, "charisma": 18}}`), &s))

	assert.Equal(t, 0, s.DisplayLevel())
	assert.Equal(t, [6]int{0, 10, 10, 10, 10, 18}, s.Scores())
	assert.Contains(t, s.FormatMemory(), "Level=0; STR=0 DEX=10 CON=10 INT=10 WIS=10 CHA=18")
	assert.NoError(t, s.Validate())
}
