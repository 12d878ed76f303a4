package model

import "time"

// Streak tracks consecutive-day activity. Longest >= Current holds at all
// times; the tracker asserts it on every streak mutation.
type Streak struct {
	Current          int       `json:"current"`
	Longest          int       `json:"longest"`
	LastActivityDate time.Time `json:"last_activity_date"`
}

// UnlockedAchievement records one unlocked catalog entry for a persona.
// The unlock timestamp is immutable; re-unlocking the same ID is a no-op.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// ProgressLedger is the per-persona progress record. Level and NextLevelXP
// are derived from CurrentXP by the level calculator and never set
// directly.
type ProgressLedger struct {
	Persona           Persona               `json:"persona"`
	Level             int                   `json:"level"`
	CurrentXP         int                   `json:"current_xp"`
	NextLevelXP       int                   `json:"next_level_xp"`
	TotalInteractions int                   `json:"total_interactions"`
	Achievements      []UnlockedAchievement `json:"achievements"`
	Streak            Streak                `json:"streak"`
	LastInteraction   time.Time             `json:"last_interaction"`
}

// NewLedger returns a fresh level-1 ledger for the given persona.
func NewLedger(p Persona) *ProgressLedger {
	return &ProgressLedger{
		Persona:     p,
		Level:       1,
		NextLevelXP: 100,
	}
}

// Clone returns a deep copy. Mutations work on a copy and publish it as a
// single replacement, never as partial field writes.
func (l *ProgressLedger) Clone() *ProgressLedger {
	cp := *l
	cp.Achievements = make([]UnlockedAchievement, len(l.Achievements))
	copy(cp.Achievements, l.Achievements)
	return &cp
}

// HasAchievement reports whether the achievement ID is already unlocked.
func (l *ProgressLedger) HasAchievement(id string) bool {
	for _, a := range l.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// SnapshotSchemaVersion tags the persisted snapshot layout. Snapshots with
// an unknown version are discarded in favor of fresh ledgers.
const SnapshotSchemaVersion = 1

// Snapshot is the full persisted state for one user identity: every
// persona's ledger plus bookkeeping.
type Snapshot struct {
	SchemaVersion int                         `json:"schema_version"`
	SyncVersion   int64                       `json:"sync_version"`
	Ledgers       map[Persona]*ProgressLedger `json:"ledgers"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// NewSnapshot returns a snapshot with fresh ledgers for every persona.
func NewSnapshot() *Snapshot {
	s := &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		Ledgers:       make(map[Persona]*ProgressLedger, len(Personas)),
	}
	for _, p := range Personas {
		s.Ledgers[p] = NewLedger(p)
	}
	return s
}
