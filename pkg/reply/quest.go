package reply

const (
	QuestModeGameMaster = "game_master"
	QuestPersonaName    = "The Game Master"

	DefaultQuestTitle      = "The Shadowed Forest"
	DefaultQuestSetting    = "Dark Fantasy"
	DefaultQuestTone       = "Gritty"
	DefaultQuestDifficulty = "Moderate"
)

// ApplyQuest fills missing quest metadata for the game master persona and
// clears it for everyone else. Values the model already provided are kept.
func ApplyQuest(r Reply, mode, personaName string) Reply {
	if mode != QuestModeGameMaster || personaName != QuestPersonaName {
		r.QuestTitle = ""
		r.QuestSetting = ""
		r.QuestTone = ""
		r.QuestDifficulty = ""
		return r
	}
	if r.QuestTitle == "" {
		r.QuestTitle = DefaultQuestTitle
	}
	if r.QuestSetting == "" {
		r.QuestSetting = DefaultQuestSetting
	}
	if r.QuestTone == "" {
		r.QuestTone = DefaultQuestTone
	}
	if r.QuestDifficulty == "" {
		r.QuestDifficulty = DefaultQuestDifficulty
	}
	return r
}
