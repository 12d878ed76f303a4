// Package tracker is the progress state store: it owns the per-persona
// ledgers, applies XP mutations as atomic replacements, persists a
// snapshot on every change and hands events to the notifier and the
// remote sync client.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pqtu-edu/progresskit/achievement"
	"github.com/pqtu-edu/progresskit/audit"
	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/level"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/notify"
	"github.com/pqtu-edu/progresskit/remote"
	"github.com/pqtu-edu/progresskit/storage"
	"go.uber.org/zap"
)

// ErrAchievementNotFound is returned by UnlockAchievement for an unknown
// catalog ID.
var ErrAchievementNotFound = errors.New("tracker: achievement not found")

// Options wires a Tracker. Store and Logger are required; the rest have
// working defaults or are optional collaborators.
type Options struct {
	Cfg      config.EngineConfig
	UserID   string
	Store    *storage.Store
	Calc     *level.Calculator
	Registry *achievement.Registry
	Remote   *remote.Client
	Emitter  *notify.Emitter
	Journal  *audit.Service
	Logger   *zap.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Result is the outcome of one mutation.
type Result struct {
	Ledger   *model.ProgressLedger
	XPGained int
	LevelUp  *model.LevelUpEvent
	Unlocked []model.Achievement
}

// Tracker holds per-persona progress for one user identity. All mutations
// are serialized; each one reads the current ledger, computes a
// replacement and publishes it as a whole.
type Tracker struct {
	cfg      config.EngineConfig
	userID   string
	store    *storage.Store
	calc     *level.Calculator
	registry *achievement.Registry
	remote   *remote.Client
	emitter  *notify.Emitter
	journal  *audit.Service
	logger   *zap.Logger
	now      func() time.Time

	mu             sync.Mutex
	snap           *model.Snapshot
	recentGains    []model.XPGainEvent
	recentLevelUps []model.LevelUpEvent
}

// New builds a Tracker and loads the persisted snapshot for the user. A
// missing or unreadable snapshot falls back to fresh ledgers — storage
// trouble never surfaces here.
func New(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, errors.New("tracker: store is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("tracker: logger is required")
	}
	calc := opts.Calc
	if calc == nil {
		var err error
		calc, err = level.New(opts.Cfg.LevelThresholds)
		if err != nil {
			calc, err = level.New(level.DefaultThresholds)
			if err != nil {
				return nil, err
			}
			opts.Logger.Warn("invalid level thresholds in config, using defaults")
		}
	}
	registry := opts.Registry
	if registry == nil {
		var err error
		registry, err = achievement.New(achievement.DefaultCatalog())
		if err != nil {
			return nil, err
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		cfg:      opts.Cfg,
		userID:   opts.UserID,
		store:    opts.Store,
		calc:     calc,
		registry: registry,
		remote:   opts.Remote,
		emitter:  opts.Emitter,
		journal:  opts.Journal,
		logger:   opts.Logger,
		now:      now,
	}
	t.snap = t.load(context.Background())
	return t, nil
}

// load reads and validates the persisted snapshot, falling back to fresh
// ledgers on absence, parse failure or an unknown schema version.
func (t *Tracker) load(ctx context.Context) *model.Snapshot {
	raw, ok := t.store.Get(ctx, storage.StateKey(t.userID))
	if !ok {
		return model.NewSnapshot()
	}
	snap := &model.Snapshot{}
	if err := json.Unmarshal([]byte(raw), snap); err != nil {
		t.logger.Warn("snapshot parse failed, starting fresh", zap.Error(err))
		return model.NewSnapshot()
	}
	if snap.SchemaVersion != model.SnapshotSchemaVersion {
		t.logger.Warn("snapshot schema version unknown, starting fresh",
			zap.Int("version", snap.SchemaVersion))
		return model.NewSnapshot()
	}
	// Missing personas (older snapshots) get fresh ledgers.
	if snap.Ledgers == nil {
		snap.Ledgers = make(map[model.Persona]*model.ProgressLedger, len(model.Personas))
	}
	for _, p := range model.Personas {
		if snap.Ledgers[p] == nil {
			snap.Ledgers[p] = model.NewLedger(p)
		}
	}
	return snap
}

func xpForKind(cfg config.EngineConfig, kind model.InteractionKind) (int, model.XPSource) {
	switch kind {
	case model.InteractionQuestion:
		return cfg.XPQuestion, model.SourceInteraction
	case model.InteractionPerfectAnswer:
		return cfg.XPPerfectAnswer, model.SourcePerfectAnswer
	default:
		return cfg.XPFirstTime, model.SourceFirstTime
	}
}

// RecordInteraction records one UI event for the persona. It validates,
// applies XP, advances the streak, runs achievement checks (reward XP
// cascades to a bounded depth), persists the snapshot and triggers the
// best-effort remote push. Each call is one discrete mutation; rapid
// callers never lose an intermediate level-up.
func (t *Tracker) RecordInteraction(ctx context.Context, persona model.Persona, kind model.InteractionKind) (*Result, error) {
	if !persona.IsValid() {
		return nil, &model.InvalidPersonaError{Persona: persona}
	}
	if !kind.IsValid() {
		return nil, &model.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown interaction kind %q", string(kind))}
	}

	amount, source := xpForKind(t.cfg, kind)
	now := t.now()

	t.mu.Lock()
	working := t.snap.Ledgers[persona].Clone()
	levelBefore := working.Level

	working.TotalInteractions++
	working.LastInteraction = now
	advanceStreak(&working.Streak, now, t.cfg.StreakGraceDays)

	gains := []model.XPGainEvent{{
		Persona:     persona,
		Amount:      amount,
		Source:      source,
		Description: string(kind),
		Timestamp:   now,
	}}
	working.CurrentXP += amount
	t.applyLevel(working)

	unlocked := t.cascadeUnlocks(working, achievement.Gain{Amount: amount, Source: source}, now, &gains)

	levelUp := t.finishMutation(ctx, persona, working, levelBefore, gains, unlocked, now)
	totalGained := 0
	for _, g := range gains {
		totalGained += g.Amount
	}
	result := &Result{
		Ledger:   working.Clone(),
		XPGained: totalGained,
		LevelUp:  levelUp,
		Unlocked: unlocked,
	}
	t.mu.Unlock()

	t.afterMutation(persona, result, gains)
	t.journalLog(audit.Entry{
		UserID:  t.userID,
		Persona: persona,
		Action:  audit.ActionInteraction,
		Detail:  map[string]interface{}{"kind": kind, "xp": totalGained},
	})
	return result, nil
}

// UnlockAchievement unlocks a catalog entry directly. Idempotent: a second
// unlock of the same ID is a no-op that returns the current ledger.
func (t *Tracker) UnlockAchievement(ctx context.Context, persona model.Persona, achievementID string) (*Result, error) {
	if !persona.IsValid() {
		return nil, &model.InvalidPersonaError{Persona: persona}
	}
	entry, ok := t.registry.Get(achievementID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAchievementNotFound, achievementID)
	}
	if entry.Persona != "" && entry.Persona != persona {
		return nil, fmt.Errorf("%w: %q does not apply to persona %q", ErrAchievementNotFound, achievementID, string(persona))
	}
	now := t.now()

	t.mu.Lock()
	working := t.snap.Ledgers[persona].Clone()
	if working.HasAchievement(achievementID) {
		result := &Result{Ledger: working}
		t.mu.Unlock()
		return result, nil
	}
	levelBefore := working.Level

	working.Achievements = append(working.Achievements, model.UnlockedAchievement{ID: entry.ID, UnlockedAt: now})
	unlocked := []model.Achievement{entry}
	var gains []model.XPGainEvent
	if entry.XPReward > 0 {
		gains = append(gains, model.XPGainEvent{
			Persona:     persona,
			Amount:      entry.XPReward,
			Source:      model.SourceAchievement,
			Description: entry.Title,
			Timestamp:   now,
		})
		working.CurrentXP += entry.XPReward
		t.applyLevel(working)
	}
	unlocked = append(unlocked, t.cascadeUnlocks(working, achievement.Gain{Amount: entry.XPReward, Source: model.SourceAchievement}, now, &gains)...)

	levelUp := t.finishMutation(ctx, persona, working, levelBefore, gains, unlocked, now)
	totalGained := 0
	for _, g := range gains {
		totalGained += g.Amount
	}
	result := &Result{
		Ledger:   working.Clone(),
		XPGained: totalGained,
		LevelUp:  levelUp,
		Unlocked: unlocked,
	}
	t.mu.Unlock()

	t.afterMutation(persona, result, gains)
	t.journalLog(audit.Entry{
		UserID:  t.userID,
		Persona: persona,
		Action:  audit.ActionUnlock,
		Detail:  map[string]interface{}{"achievement": achievementID},
	})
	return result, nil
}

// GetLedger returns a copy of the persona's ledger.
func (t *Tracker) GetLedger(persona model.Persona) (*model.ProgressLedger, error) {
	if !persona.IsValid() {
		return nil, &model.InvalidPersonaError{Persona: persona}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap.Ledgers[persona].Clone(), nil
}

// Snapshot returns a deep copy of the full state.
func (t *Tracker) Snapshot() *model.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.copySnapshotLocked()
}

func (t *Tracker) copySnapshotLocked() *model.Snapshot {
	cp := &model.Snapshot{
		SchemaVersion: t.snap.SchemaVersion,
		SyncVersion:   t.snap.SyncVersion,
		UpdatedAt:     t.snap.UpdatedAt,
		Ledgers:       make(map[model.Persona]*model.ProgressLedger, len(t.snap.Ledgers)),
	}
	for p, l := range t.snap.Ledgers {
		cp.Ledgers[p] = l.Clone()
	}
	return cp
}

// RecentGains returns the rolling recent XP gains, newest first.
func (t *Tracker) RecentGains() []model.XPGainEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.XPGainEvent, len(t.recentGains))
	copy(out, t.recentGains)
	return out
}

// RecentLevelUps returns the rolling recent level-up events, newest first.
func (t *Tracker) RecentLevelUps() []model.LevelUpEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.LevelUpEvent, len(t.recentLevelUps))
	copy(out, t.recentLevelUps)
	return out
}

// ResetAll destroys every persona's progress for this user identity and
// reinitializes fresh ledgers. Destructive — callers must confirm at the
// UI boundary before invoking it.
func (t *Tracker) ResetAll(ctx context.Context) {
	t.mu.Lock()
	t.snap = model.NewSnapshot()
	t.snap.UpdatedAt = t.now()
	t.recentGains = nil
	t.recentLevelUps = nil
	t.persistLocked(ctx)
	t.mu.Unlock()

	t.journalLog(audit.Entry{UserID: t.userID, Action: audit.ActionReset})
	t.logger.Info("progress reset", zap.String("user", t.userID))
}

// Hydrate adopts the backend's snapshot when the local one is still
// untouched. Local state is the source of truth otherwise.
func (t *Tracker) Hydrate(ctx context.Context) error {
	if t.remote == nil || !t.remote.Enabled() {
		return nil
	}
	t.mu.Lock()
	untouched := t.untouchedLocked()
	t.mu.Unlock()
	if !untouched {
		return nil
	}

	pulled, err := t.remote.Pull(ctx, t.userID)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// A mutation may have landed while the pull was in flight. Local state
	// wins: the pulled snapshot is discarded rather than overwriting it.
	if !t.untouchedLocked() {
		t.logger.Debug("local state changed during hydrate, keeping local")
		return nil
	}
	for _, p := range model.Personas {
		if pulled.Ledgers[p] == nil {
			pulled.Ledgers[p] = model.NewLedger(p)
		}
	}
	t.snap = pulled
	t.persistLocked(ctx)
	return nil
}

// untouchedLocked reports whether no persona has recorded any progress
// yet. Caller holds the mutex.
func (t *Tracker) untouchedLocked() bool {
	for _, l := range t.snap.Ledgers {
		if l.TotalInteractions > 0 || len(l.Achievements) > 0 {
			return false
		}
	}
	return true
}

// SyncNow pushes the current snapshot immediately, bypassing nothing but
// the mutex. Best-effort like every other push.
func (t *Tracker) SyncNow(ctx context.Context) error {
	if t.remote == nil {
		return nil
	}
	return t.remote.Push(ctx, t.userID, t.Snapshot())
}

// ---- internals ----

func (t *Tracker) applyLevel(l *model.ProgressLedger) {
	r := t.calc.Calculate(l.CurrentXP)
	l.Level = r.Level
	l.NextLevelXP = r.NextLevelXP
}

// cascadeUnlocks evaluates achievement criteria after a gain and applies
// reward XP, re-checking up to the configured depth so a reward that
// satisfies another criteria unlocks it in the same mutation — but never
// loops unbounded.
func (t *Tracker) cascadeUnlocks(l *model.ProgressLedger, gain achievement.Gain, now time.Time, gains *[]model.XPGainEvent) []model.Achievement {
	depth := t.cfg.AchievementCascadeDepth
	if depth <= 0 {
		depth = 2
	}
	var unlocked []model.Achievement
	for d := 0; d <= depth; d++ {
		eligible := t.registry.Eligible(l, gain)
		if len(eligible) == 0 {
			break
		}
		rewardSum := 0
		for _, a := range eligible {
			l.Achievements = append(l.Achievements, model.UnlockedAchievement{ID: a.ID, UnlockedAt: now})
			unlocked = append(unlocked, a)
			if a.XPReward > 0 {
				rewardSum += a.XPReward
				*gains = append(*gains, model.XPGainEvent{
					Persona:     l.Persona,
					Amount:      a.XPReward,
					Source:      model.SourceAchievement,
					Description: a.Title,
					Timestamp:   now,
				})
			}
		}
		if rewardSum == 0 {
			break
		}
		l.CurrentXP += rewardSum
		t.applyLevel(l)
		gain = achievement.Gain{Amount: rewardSum, Source: model.SourceAchievement}
	}
	return unlocked
}

// finishMutation publishes the working ledger as the current one, records
// ring-buffer events and persists the snapshot. Caller holds the mutex.
func (t *Tracker) finishMutation(ctx context.Context, persona model.Persona, working *model.ProgressLedger, levelBefore int, gains []model.XPGainEvent, unlocked []model.Achievement, now time.Time) *model.LevelUpEvent {
	if !t.invariant(working.Streak.Longest >= working.Streak.Current,
		"streak longest fell below current",
		zap.String("persona", string(persona))) {
		working.Streak.Longest = working.Streak.Current
	}
	if !t.invariant(working.CurrentXP >= 0, "xp went negative",
		zap.String("persona", string(persona))) {
		working.CurrentXP = 0
		t.applyLevel(working)
	}

	var levelUp *model.LevelUpEvent
	if working.Level > levelBefore {
		totalGained := 0
		for _, g := range gains {
			totalGained += g.Amount
		}
		features := make([]string, 0, len(unlocked))
		for _, a := range unlocked {
			features = append(features, a.Title)
		}
		levelUp = &model.LevelUpEvent{
			Persona:  persona,
			NewLevel: working.Level,
			XPGained: totalGained,
			Unlocked: features,
			At:       now,
		}
		t.pushLevelUp(*levelUp)
	}
	for _, g := range gains {
		t.pushGain(g)
	}

	t.snap.Ledgers[persona] = working
	t.snap.UpdatedAt = now
	t.snap.SyncVersion++
	t.persistLocked(ctx)
	return levelUp
}

func (t *Tracker) pushGain(g model.XPGainEvent) {
	size := t.cfg.RecentGainsSize
	if size <= 0 {
		size = 5
	}
	t.recentGains = append([]model.XPGainEvent{g}, t.recentGains...)
	if len(t.recentGains) > size {
		t.recentGains = t.recentGains[:size]
	}
}

func (t *Tracker) pushLevelUp(ev model.LevelUpEvent) {
	size := t.cfg.RecentLevelUpsSize
	if size <= 0 {
		size = 3
	}
	t.recentLevelUps = append([]model.LevelUpEvent{ev}, t.recentLevelUps...)
	if len(t.recentLevelUps) > size {
		t.recentLevelUps = t.recentLevelUps[:size]
	}
}

// persistLocked writes the snapshot under the user's namespace. Caller
// holds the mutex. Persistence failures are swallowed by the store.
func (t *Tracker) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(t.snap)
	if err != nil {
		t.logger.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	t.store.Set(ctx, storage.StateKey(t.userID), string(raw))
	t.store.Set(ctx, storage.UserKey(storage.KeyLastUpdate, t.userID),
		strconv.FormatInt(t.now().UnixMilli(), 10))
}

// afterMutation runs outside the mutex: UI notifications and the
// best-effort remote push.
func (t *Tracker) afterMutation(persona model.Persona, result *Result, gains []model.XPGainEvent) {
	if t.emitter != nil {
		for i := range gains {
			g := gains[i]
			t.emitter.Publish(notify.Event{Type: notify.EventXPGained, Persona: persona, XPGain: &g})
		}
		for i := range result.Unlocked {
			a := result.Unlocked[i]
			t.emitter.Publish(notify.Event{Type: notify.EventAchievementUnlocked, Persona: persona, Achievement: &a})
		}
		if result.LevelUp != nil {
			t.emitter.Publish(notify.Event{Type: notify.EventLevelUp, Persona: persona, LevelUp: result.LevelUp})
		}
	}

	if t.remote != nil && t.remote.Enabled() {
		snap := t.Snapshot()
		unlocked := result.Unlocked
		xpGained := result.XPGained
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := t.remote.Push(ctx, t.userID, snap); err != nil {
				t.logger.Debug("remote push failed, staying local", zap.Error(err))
				return
			}
			if xpGained > 0 {
				if err := t.remote.UpdateUserScore(ctx, t.userID, remote.ScoreUpdate{
					Category: "xp",
					Points:   xpGained,
					Metadata: map[string]interface{}{"persona": string(persona)},
				}); err != nil {
					t.logger.Debug("score update failed", zap.Error(err))
				}
			}
			for _, a := range unlocked {
				if err := t.remote.RecordAchievement(ctx, t.userID, remote.AchievementReport{
					Type:  a.ID,
					Value: a.XPReward,
					Metadata: map[string]interface{}{
						"persona":  string(persona),
						"category": a.Category,
					},
				}); err != nil {
					t.logger.Debug("achievement report failed", zap.Error(err))
				}
			}
		}()
	}
}

func (t *Tracker) journalLog(entry audit.Entry) {
	if t.journal != nil {
		t.journal.Log(entry)
	}
}

// invariant enforces a programming-error check: panic in debug mode, log
// loudly otherwise. Returns false when violated so the caller can repair
// the state before publishing it.
func (t *Tracker) invariant(cond bool, msg string, fields ...zap.Field) bool {
	if cond {
		return true
	}
	if t.cfg.Debug {
		panic("tracker: invariant violation: " + msg)
	}
	t.logger.Error("invariant violation: "+msg, fields...)
	return false
}
