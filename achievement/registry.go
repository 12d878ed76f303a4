// Package achievement holds the static unlockable catalog and evaluates
// its declarative unlock criteria against ledger state.
package achievement

import (
	"fmt"

	"github.com/pqtu-edu/progresskit/model"
)

// Gain is the snapshot of one XP mutation handed to predicate evaluation.
type Gain struct {
	Amount int
	Source model.XPSource
}

// Registry is a read-only catalog keyed by achievement ID.
type Registry struct {
	entries []model.Achievement
	byID    map[string]*model.Achievement
}

// New validates the catalog and builds a Registry. Duplicate IDs, an empty
// criteria type, a negative reward or an unknown persona are programming
// errors in the catalog and fail construction.
func New(catalog []model.Achievement) (*Registry, error) {
	r := &Registry{
		entries: make([]model.Achievement, len(catalog)),
		byID:    make(map[string]*model.Achievement, len(catalog)),
	}
	copy(r.entries, catalog)
	for i := range r.entries {
		a := &r.entries[i]
		if a.ID == "" {
			return nil, fmt.Errorf("achievement: entry %d has no id", i)
		}
		if _, dup := r.byID[a.ID]; dup {
			return nil, fmt.Errorf("achievement: duplicate id %q", a.ID)
		}
		if a.Criteria.Type == "" {
			return nil, fmt.Errorf("achievement: %q has no unlock criteria", a.ID)
		}
		if a.XPReward < 0 {
			return nil, fmt.Errorf("achievement: %q has negative xp reward", a.ID)
		}
		if a.Persona != "" && !a.Persona.IsValid() {
			return nil, fmt.Errorf("achievement: %q targets unknown persona %q", a.ID, a.Persona)
		}
		r.byID[a.ID] = a
	}
	return r, nil
}

// Get returns the catalog entry for the given ID.
func (r *Registry) Get(id string) (model.Achievement, bool) {
	a, ok := r.byID[id]
	if !ok {
		return model.Achievement{}, false
	}
	return *a, true
}

// Catalog returns a copy of every entry.
func (r *Registry) Catalog() []model.Achievement {
	out := make([]model.Achievement, len(r.entries))
	copy(out, r.entries)
	return out
}

// ForPersona returns the entries applicable to the persona: shared entries
// plus the persona's own.
func (r *Registry) ForPersona(p model.Persona) []model.Achievement {
	var out []model.Achievement
	for _, a := range r.entries {
		if a.Persona == "" || a.Persona == p {
			out = append(out, a)
		}
	}
	return out
}

// Eligible returns the not-yet-unlocked entries whose criteria the ledger
// satisfies after the given gain, in catalog order. Already-unlocked IDs
// never reappear, so unlocking stays idempotent.
func (r *Registry) Eligible(ledger *model.ProgressLedger, gain Gain) []model.Achievement {
	var out []model.Achievement
	for _, a := range r.ForPersona(ledger.Persona) {
		if ledger.HasAchievement(a.ID) {
			continue
		}
		if satisfied(a.Criteria, ledger, gain) {
			out = append(out, a)
		}
	}
	return out
}

func satisfied(c model.Criteria, ledger *model.ProgressLedger, gain Gain) bool {
	switch c.Type {
	case model.CriteriaInteractions:
		return ledger.TotalInteractions >= c.Threshold
	case model.CriteriaLevel:
		return ledger.Level >= c.Threshold
	case model.CriteriaStreak:
		return ledger.Streak.Current >= c.Threshold
	case model.CriteriaTotalXP:
		return ledger.CurrentXP >= c.Threshold
	case model.CriteriaSource:
		return gain.Source == c.Source && gain.Amount > 0
	default:
		return false
	}
}
