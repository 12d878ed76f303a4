package model

// CriteriaType selects which ledger/event property an achievement's unlock
// predicate inspects. Predicates are declarative; the registry evaluates
// them, never arbitrary code.
type CriteriaType string

const (
	CriteriaInteractions CriteriaType = "interactions" // TotalInteractions >= Threshold
	CriteriaLevel        CriteriaType = "level"        // Level >= Threshold
	CriteriaStreak       CriteriaType = "streak"       // Streak.Current >= Threshold
	CriteriaTotalXP      CriteriaType = "total_xp"     // CurrentXP >= Threshold
	CriteriaSource       CriteriaType = "source"       // gain Source == Source, Threshold-th time
)

// Criteria is a declarative unlock predicate.
type Criteria struct {
	Type      CriteriaType `json:"type"`
	Threshold int          `json:"threshold"`
	Source    XPSource     `json:"source,omitempty"`
}

// Rarity tags how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// Achievement is an immutable catalog entry. Persona is empty for entries
// shared by every persona.
type Achievement struct {
	ID          string   `json:"id"`
	Persona     Persona  `json:"persona,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	XPReward    int      `json:"xp_reward"`
	Category    string   `json:"category"`
	Rarity      Rarity   `json:"rarity"`
	Criteria    Criteria `json:"criteria"`
}
