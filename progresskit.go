// Package progresskit is an embeddable gamification engine for the PQT-U
// patient-education app: per-persona XP/level ledgers, achievements,
// daily streaks, offline feedback and best-effort backend sync. Open
// wires every subsystem from one Config; embedders hold a single Engine.
package progresskit

import (
	"context"

	"github.com/pqtu-edu/progresskit/audit"
	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/feedback"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/notify"
	"github.com/pqtu-edu/progresskit/remote"
	"github.com/pqtu-edu/progresskit/scheduler"
	"github.com/pqtu-edu/progresskit/storage"
	"github.com/pqtu-edu/progresskit/tracker"
	"go.uber.org/zap"
)

// Engine is the composition root. All subsystems are wired once in Open
// and torn down in Close.
type Engine struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *storage.Store
	journal  *audit.Service
	emitter  *notify.Emitter
	remote   *remote.Client
	tracker  *tracker.Tracker
	feedback *feedback.Service
	sched    *scheduler.Scheduler
}

// Open builds a fully wired Engine. A nil cfg uses defaults (in-memory
// storage, no remote backend). A nil logger silences the engine.
func Open(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := storage.OpenStore(cfg.Storage, logger)
	journal := audit.New(storage.DB(store.Backend()), logger)
	emitter := notify.NewEmitter(0)
	rc := remote.NewClient(cfg.Remote, store, logger)

	// Sync status changes surface as UI events.
	rc.OnStatus(func(s remote.SyncStatus) {
		emitter.Publish(notify.Event{Type: notify.EventSyncStatus, SyncStatus: string(s)})
	})

	userID := rc.UserID()
	if userID == "" {
		userID = storage.AnonymousUser
	}

	tr, err := tracker.New(tracker.Options{
		Cfg:     cfg.Engine,
		UserID:  userID,
		Store:   store,
		Remote:  rc,
		Emitter: emitter,
		Journal: journal,
		Logger:  logger,
	})
	if err != nil {
		journal.Stop()
		_ = store.Close()
		return nil, err
	}

	sched := scheduler.New(logger)
	fb := feedback.New(cfg.Feedback, store, userID, logger)
	fb.StartFlusher(sched)

	logger.Info("progress engine initialized",
		zap.String("user", userID),
		zap.String("storage", cfg.Storage.Mode),
		zap.Bool("remote", rc.Enabled()))

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		journal:  journal,
		emitter:  emitter,
		remote:   rc,
		tracker:  tr,
		feedback: fb,
		sched:    sched,
	}, nil
}

// RecordInteraction records one user interaction for the persona.
func (e *Engine) RecordInteraction(ctx context.Context, persona model.Persona, kind model.InteractionKind) (*tracker.Result, error) {
	return e.tracker.RecordInteraction(ctx, persona, kind)
}

// UnlockAchievement unlocks a catalog achievement directly. Idempotent.
func (e *Engine) UnlockAchievement(ctx context.Context, persona model.Persona, id string) (*tracker.Result, error) {
	return e.tracker.UnlockAchievement(ctx, persona, id)
}

// GetLedger returns a copy of the persona's current ledger.
func (e *Engine) GetLedger(persona model.Persona) (*model.ProgressLedger, error) {
	return e.tracker.GetLedger(persona)
}

// ResetAll destroys all local progress. Callers confirm with the user
// before invoking it.
func (e *Engine) ResetAll(ctx context.Context) {
	e.tracker.ResetAll(ctx)
}

// SubmitFeedback validates and delivers a feedback record, queuing it
// offline when the backend is unreachable.
func (e *Engine) SubmitFeedback(ctx context.Context, rec model.FeedbackRecord) error {
	return e.feedback.Submit(ctx, rec)
}

// Subscribe returns a channel of progress events and a cancel function.
func (e *Engine) Subscribe() (<-chan notify.Event, func()) {
	return e.emitter.Subscribe()
}

// Hydrate pulls the backend snapshot when local state is still untouched.
func (e *Engine) Hydrate(ctx context.Context) error {
	return e.tracker.Hydrate(ctx)
}

// SyncNow pushes the current snapshot immediately. Best-effort.
func (e *Engine) SyncNow(ctx context.Context) error {
	return e.tracker.SyncNow(ctx)
}

// Tracker exposes the underlying progress tracker (recent gains,
// favorites, snapshots).
func (e *Engine) Tracker() *tracker.Tracker { return e.tracker }

// Remote exposes the sync/leaderboard client.
func (e *Engine) Remote() *remote.Client { return e.remote }

// Feedback exposes the feedback service (stats, pending count).
func (e *Engine) Feedback() *feedback.Service { return e.feedback }

// Close tears down timers, flushes the journal and releases the store.
func (e *Engine) Close() error {
	e.feedback.Close()
	e.sched.Stop()
	e.journal.Stop()
	e.emitter.Close()
	return e.store.Close()
}
