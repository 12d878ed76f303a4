// Package audit keeps a local journal of progress mutations and resets.
// Entries are written asynchronously in batches; when no DB-backed store
// is active the service is a no-op.
package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pqtu-edu/progresskit/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actions recorded in the journal.
const (
	ActionInteraction = "record_interaction"
	ActionUnlock      = "unlock_achievement"
	ActionReset       = "reset_all"
)

// Entry holds one journal event.
type Entry struct {
	UserID  string
	Persona model.Persona
	Action  string
	Detail  interface{}
}

// Service writes journal entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.JournalEntry
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a Service and starts its background worker. A nil db yields
// a no-op service; Log and Stop stay safe to call.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	svc := &Service{
		db:     db,
		ch:     make(chan *model.JournalEntry, 256),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	if db != nil {
		svc.wg.Add(1)
		go svc.worker()
	}
	return svc
}

// Log enqueues a journal entry. The channel never blocks a mutation; on
// overflow the entry is dropped with a warning.
func (svc *Service) Log(entry Entry) {
	if svc.db == nil {
		return
	}
	detailJSON, _ := json.Marshal(entry.Detail)
	record := &model.JournalEntry{
		UserID:  entry.UserID,
		Persona: string(entry.Persona),
		Action:  entry.Action,
		Detail:  datatypes.JSON(detailJSON),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("journal channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Stop flushes remaining entries and shuts down the worker.
func (svc *Service) Stop() {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	batch := make([]*model.JournalEntry, 0, 50)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("journal batch write failed", zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
