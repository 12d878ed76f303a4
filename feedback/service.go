// Package feedback submits user ratings to the feedback API and keeps an
// offline queue so a dead network never loses a submission.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/scheduler"
	"github.com/pqtu-edu/progresskit/storage"
	"go.uber.org/zap"
)

// ErrRejected means the backend refused the payload outright. Rejected
// records are not queued; retrying an invalid payload cannot succeed.
var ErrRejected = errors.New("feedback: rejected by backend")

const flushTask = "feedback_flush"

// Service sends feedback records with bounded retries and queues them
// locally when the network is down.
type Service struct {
	cfg    config.FeedbackConfig
	http   *http.Client
	queue  *queue
	logger *zap.Logger

	mu    sync.Mutex // serializes Submit's queue path and Drain
	sched *scheduler.Scheduler
	now   func() time.Time
}

// New builds a Service. An empty BaseURL puts it in offline-only mode:
// every submission goes straight to the queue.
func New(cfg config.FeedbackConfig, store *storage.Store, userID string, logger *zap.Logger) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 10 * time.Second
	}
	return &Service{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		queue:  newQueue(store, userID, cfg.QueueCap, logger),
		logger: logger,
		now:    time.Now,
	}
}

// StartFlusher registers the periodic drain on the scheduler.
func (s *Service) StartFlusher(sched *scheduler.Scheduler) {
	interval := s.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.sched = sched
	sched.AddTicker(flushTask, interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.Drain(ctx)
	})
}

// Close removes the flush ticker. The queue itself is persistent and
// survives for the next session.
func (s *Service) Close() {
	if s.sched != nil {
		s.sched.Remove(flushTask)
	}
}

// Submit validates and sends one feedback record. Validation failures
// return before any network I/O. Network failures enqueue the record for
// a later drain; the caller sees success because delivery is guaranteed
// eventually-or-loudly, not synchronously.
func (s *Service) Submit(ctx context.Context, rec model.FeedbackRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.RequestID == "" {
		rec.RequestID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	if s.cfg.BaseURL == "" {
		s.enqueue(ctx, rec)
		return nil
	}

	err := s.sendWithRetry(ctx, rec)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRejected) {
		return err
	}
	s.logger.Info("feedback send failed, queuing offline",
		zap.String("request_id", rec.RequestID), zap.Error(err))
	s.enqueue(ctx, rec)
	return nil
}

// Drain flushes the offline queue in FIFO order. The first item that
// fails again moves to the tail and draining stops until the next tick.
func (s *Service) Drain(ctx context.Context) {
	if s.cfg.BaseURL == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.queue.load(ctx)
	if len(items) == 0 {
		return
	}
	sent := 0
	for len(items) > 0 {
		head := items[0]
		err := s.sendOnce(ctx, head)
		if err == nil {
			items = items[1:]
			sent++
			continue
		}
		if errors.Is(err, ErrRejected) {
			// Poison record; dropping loudly beats blocking the queue.
			s.logger.Warn("dropping rejected offline feedback",
				zap.String("request_id", head.RequestID), zap.Error(err))
			items = items[1:]
			continue
		}
		items = append(items[1:], head)
		s.logger.Debug("feedback drain interrupted",
			zap.Int("sent", sent), zap.Int("remaining", len(items)), zap.Error(err))
		break
	}
	s.queue.save(ctx, items)
	if sent > 0 {
		s.logger.Info("offline feedback drained",
			zap.Int("sent", sent), zap.Int("remaining", len(items)))
	}
}

// Pending reports how many records are waiting in the offline queue.
func (s *Service) Pending(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len(ctx)
}

func (s *Service) enqueue(ctx context.Context, rec model.FeedbackRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(ctx, rec)
}

func (s *Service) sendWithRetry(ctx context.Context, rec model.FeedbackRecord) error {
	var err error
	backoff := s.cfg.BackoffBase
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err = s.sendOnce(ctx, rec)
		if err == nil || errors.Is(err, ErrRejected) {
			return err
		}
		if attempt == s.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.BackoffCap {
			backoff = s.cfg.BackoffCap
		}
	}
	return err
}

func (s *Service) sendOnce(ctx context.Context, rec model.FeedbackRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/api/v1/feedback", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return fmt.Errorf("feedback: status %d", resp.StatusCode)
	}
}

// Stats is the aggregate feedback summary served by the backend.
type Stats struct {
	TotalCount    int            `json:"total_count"`
	AverageRating float64        `json:"average_rating"`
	RatingCounts  map[string]int `json:"rating_counts"`
}

// FetchStats retrieves the aggregate feedback stats.
func (s *Service) FetchStats(ctx context.Context) (*Stats, error) {
	if s.cfg.BaseURL == "" {
		return nil, errors.New("feedback: no backend configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.BaseURL+"/api/v1/feedback/stats", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feedback: stats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feedback: stats: status %d", resp.StatusCode)
	}
	stats := &Stats{}
	if err := json.NewDecoder(resp.Body).Decode(stats); err != nil {
		return nil, fmt.Errorf("feedback: stats: decode: %w", err)
	}
	return stats, nil
}
