package feedback

import (
	"context"
	"encoding/json"

	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/storage"
	"go.uber.org/zap"
)

// queue is the persisted offline FIFO. Every mutation writes the whole
// list back under the user's namespace; it is small by construction.
type queue struct {
	store  *storage.Store
	key    string
	cap    int
	logger *zap.Logger
}

func newQueue(store *storage.Store, userID string, cap int, logger *zap.Logger) *queue {
	if cap <= 0 {
		cap = 50
	}
	return &queue{
		store:  store,
		key:    storage.UserKey(storage.KeyFeedbackQueue, userID),
		cap:    cap,
		logger: logger,
	}
}

func (q *queue) load(ctx context.Context) []model.FeedbackRecord {
	raw, ok := q.store.Get(ctx, q.key)
	if !ok {
		return nil
	}
	var items []model.FeedbackRecord
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		q.logger.Warn("offline feedback queue corrupt, discarding", zap.Error(err))
		return nil
	}
	return items
}

func (q *queue) save(ctx context.Context, items []model.FeedbackRecord) {
	if len(items) == 0 {
		q.store.Remove(ctx, q.key)
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		q.logger.Error("offline feedback queue marshal failed", zap.Error(err))
		return
	}
	q.store.Set(ctx, q.key, string(raw))
}

// push appends a record, evicting the oldest entry when the queue is full.
// Eviction is loud; losing a record must never go unnoticed.
func (q *queue) push(ctx context.Context, rec model.FeedbackRecord) {
	items := q.load(ctx)
	items = append(items, rec)
	if len(items) > q.cap {
		evicted := items[0]
		items = items[1:]
		q.logger.Warn("offline feedback queue full, evicting oldest",
			zap.String("request_id", evicted.RequestID),
			zap.String("message_id", evicted.MessageID))
	}
	q.save(ctx, items)
}

func (q *queue) len(ctx context.Context) int {
	return len(q.load(ctx))
}
