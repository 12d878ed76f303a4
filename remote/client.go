// Package remote synchronizes progress with the gamification backend.
// Sync is best-effort: every attempt is preceded by a health check, and
// any failure degrades to local-only mode instead of surfacing an error
// to the end user.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SyncStatus is the low-priority indicator surfaced to the UI.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusError   SyncStatus = "error"
)

// ErrUnavailable marks a backend that failed its health check or the
// request itself. Callers degrade to local-only state.
var ErrUnavailable = errors.New("remote: backend unavailable")

// ErrNotFound is returned by Pull when the backend has no state for the
// user yet.
var ErrNotFound = errors.New("remote: not found")

// StatusFn receives sync-status transitions.
type StatusFn func(SyncStatus)

// Client talks to the gamification backend.
type Client struct {
	baseURL  string
	token    string
	secret   string
	http     *http.Client
	health   *http.Client
	limiter  *rate.Limiter
	store    *storage.Store
	logger   *zap.Logger
	onStatus StatusFn

	mu     sync.Mutex
	status SyncStatus

	// pushSeq stamps outgoing snapshots; lastApplied guards against a
	// stale in-flight response being treated as the latest sync.
	pushSeq     atomic.Int64
	lastApplied atomic.Int64
}

// NewClient creates a Client. An empty BaseURL yields a disabled client:
// every operation is a cheap no-op and Status stays idle.
func NewClient(cfg config.RemoteConfig, store *storage.Store, logger *zap.Logger) *Client {
	rps := cfg.PushRPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.PushBurst
	if burst <= 0 {
		burst = 1
	}
	healthTimeout := cfg.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = 2 * time.Second
	}
	reqTimeout := cfg.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		secret:  cfg.TokenSecret,
		http:    &http.Client{Timeout: reqTimeout},
		health:  &http.Client{Timeout: healthTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		store:   store,
		logger:  logger,
		status:  StatusIdle,
	}
}

// OnStatus registers a callback for status transitions (at most one).
func (c *Client) OnStatus(fn StatusFn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// Enabled reports whether a backend is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Status returns the current sync status.
func (c *Client) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s SyncStatus) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	fn := c.onStatus
	c.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}

// Healthy probes the backend health endpoint with a short timeout.
func (c *Client) Healthy(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.health.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// pushPayload is the wire format for progress pushes.
type pushPayload struct {
	Version   int64                                   `json:"version"`
	Ledgers   map[model.Persona]*model.ProgressLedger `json:"ledgers"`
	UpdatedAt time.Time                               `json:"updated_at"`
}

// Push sends the snapshot to the backend. Best-effort: rate-limited, one
// attempt, no retries — local persistence is the source of truth and the
// next mutation re-syncs lazily. A completion that has been superseded by
// a newer push is ignored.
func (c *Client) Push(ctx context.Context, userID string, snap *model.Snapshot) error {
	if !c.Enabled() {
		return nil
	}
	if expired, err := c.tokenExpired(); err != nil || expired {
		c.logger.Debug("sync skipped: token unusable", zap.Error(err))
		return nil
	}
	if !c.limiter.Allow() {
		// A newer mutation will push again; dropping here is how we
		// avoid a retry storm against a struggling backend.
		c.logger.Debug("sync push rate-limited, skipping")
		return nil
	}

	seq := c.pushSeq.Add(1)
	c.setStatus(StatusSyncing)

	// A slow failure for an older push must not clobber the status a
	// newer push already established.
	fail := func() {
		if seq > c.lastApplied.Load() {
			c.setStatus(StatusError)
		}
	}

	if !c.Healthy(ctx) {
		fail()
		return fmt.Errorf("push %s: %w", userID, ErrUnavailable)
	}

	payload := pushPayload{Version: seq, Ledgers: snap.Ledgers, UpdatedAt: snap.UpdatedAt}
	body, err := json.Marshal(payload)
	if err != nil {
		fail()
		return fmt.Errorf("push %s: marshal: %w", userID, err)
	}

	endpoint := fmt.Sprintf("%s/gamification/user/%s/progress", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		fail()
		return fmt.Errorf("push %s: %w", userID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		fail()
		return fmt.Errorf("push %s: %w: %v", userID, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fail()
		return fmt.Errorf("push %s: %w: status %d", userID, ErrUnavailable, resp.StatusCode)
	}

	// Last-write-wins: only a successful push advances lastApplied, and a
	// stale success for an older push changes nothing.
	for {
		applied := c.lastApplied.Load()
		if seq <= applied {
			return nil // stale completion, ignore
		}
		if c.lastApplied.CompareAndSwap(applied, seq) {
			break
		}
	}
	c.setStatus(StatusIdle)
	return nil
}

// Pull fetches the backend's snapshot for the user. The response passes
// through typed validation before it may enter the tracker.
func (c *Client) Pull(ctx context.Context, userID string) (*model.Snapshot, error) {
	if !c.Enabled() {
		return nil, ErrNotFound
	}
	if !c.Healthy(ctx) {
		return nil, fmt.Errorf("pull %s: %w", userID, ErrUnavailable)
	}

	endpoint := fmt.Sprintf("%s/gamification/user/%s/progress", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", userID, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w: %v", userID, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pull %s: %w: status %d", userID, ErrUnavailable, resp.StatusCode)
	}

	var payload pushPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("pull %s: decode: %w", userID, err)
	}
	snap := &model.Snapshot{
		SchemaVersion: model.SnapshotSchemaVersion,
		SyncVersion:   payload.Version,
		Ledgers:       payload.Ledgers,
		UpdatedAt:     payload.UpdatedAt,
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("pull %s: invalid payload: %w", userID, err)
	}
	return snap, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// validateSnapshot rejects loosely-typed backend payloads at the boundary:
// unknown personas, negative counters or a broken streak invariant never
// reach the tracker.
func validateSnapshot(snap *model.Snapshot) error {
	if snap.Ledgers == nil {
		return errors.New("missing ledgers")
	}
	for p, l := range snap.Ledgers {
		if !p.IsValid() {
			return fmt.Errorf("unknown persona %q", string(p))
		}
		if l == nil {
			return fmt.Errorf("nil ledger for %q", string(p))
		}
		if l.CurrentXP < 0 || l.TotalInteractions < 0 || l.Level < 1 {
			return fmt.Errorf("negative counters for %q", string(p))
		}
		if l.Streak.Longest < l.Streak.Current {
			return fmt.Errorf("streak invariant broken for %q", string(p))
		}
		seen := make(map[string]struct{}, len(l.Achievements))
		for _, a := range l.Achievements {
			if a.ID == "" {
				return fmt.Errorf("achievement without id for %q", string(p))
			}
			if _, dup := seen[a.ID]; dup {
				return fmt.Errorf("duplicate achievement %q for %q", a.ID, string(p))
			}
			seen[a.ID] = struct{}{}
		}
	}
	return nil
}
