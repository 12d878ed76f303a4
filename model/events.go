package model

import "time"

// InteractionKind categorizes a recorded user interaction.
type InteractionKind string

const (
	InteractionQuestion      InteractionKind = "question"
	InteractionPerfectAnswer InteractionKind = "perfect_answer"
	InteractionFirstTime     InteractionKind = "first_time"
)

// IsValid reports whether k is a known interaction kind.
func (k InteractionKind) IsValid() bool {
	switch k {
	case InteractionQuestion, InteractionPerfectAnswer, InteractionFirstTime:
		return true
	default:
		return false
	}
}

// XPSource tells where an XP gain came from.
type XPSource string

const (
	SourceInteraction   XPSource = "interaction"
	SourceAchievement   XPSource = "achievement"
	SourceStreak        XPSource = "streak"
	SourceFirstTime     XPSource = "first_time"
	SourcePerfectAnswer XPSource = "perfect_answer"
)

// XPGainEvent is an ephemeral record of one XP gain. It is not persisted
// individually; it only drives UI feedback and the rolling recent-gains
// display.
type XPGainEvent struct {
	Persona     Persona   `json:"persona"`
	Amount      int       `json:"amount"`
	Source      XPSource  `json:"source"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// LevelUpEvent is emitted when a ledger's derived level increases within a
// single mutation.
type LevelUpEvent struct {
	Persona  Persona   `json:"persona"`
	NewLevel int       `json:"new_level"`
	XPGained int       `json:"xp_gained"`
	Unlocked []string  `json:"unlocked_features,omitempty"`
	At       time.Time `json:"at"`
}
