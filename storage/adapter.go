// Package storage is the persistent store adapter: a small string KV
// contract with mode-switched backends and a failsafe wrapper that keeps
// persistence failures away from the caller.
package storage

import (
	"context"
	"fmt"

	"github.com/pqtu-edu/progresskit/config"
	"github.com/pqtu-edu/progresskit/storage/memory"
	storredis "github.com/pqtu-edu/progresskit/storage/redis"
	storsqlite "github.com/pqtu-edu/progresskit/storage/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ModeMemory = "memory"
	ModeSQLite = "sqlite"
	ModeRedis  = "redis"
)

// Well-known keys. State keys are namespaced per user identity; the rest
// are namespaced the same way by the callers that own them.
const (
	KeyStatePrefix   = "gamification-state_"
	KeyFeedbackQueue = "feedback_offline_queue"
	KeyFavorites     = "chat_favorites"
	KeyLastUpdate    = "last-progress-update"
)

// AnonymousUser is the namespace used when no user identity is available.
const AnonymousUser = "anonymous"

// StateKey returns the snapshot key for a user identity, falling back to
// the anonymous namespace.
func StateKey(userID string) string {
	if userID == "" {
		userID = AnonymousUser
	}
	return KeyStatePrefix + userID
}

// UserKey namespaces an arbitrary key by user identity.
func UserKey(key, userID string) string {
	if userID == "" {
		userID = AnonymousUser
	}
	return key + "_" + userID
}

// Backend is the raw KV contract implemented by each storage mode. An
// absent key is (_, false, nil); err is reserved for backend failures.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open returns a Backend for the configured storage mode.
func Open(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Mode {
	case ModeMemory, "":
		return memory.New(), nil
	case ModeSQLite:
		return storsqlite.Open(cfg.SQLitePath)
	case ModeRedis:
		return storredis.Open(storredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("storage: unknown mode %q", cfg.Mode)
	}
}

// DB exposes the underlying gorm handle of a sqlite-backed store, for the
// mutation journal. Returns nil for other modes.
func DB(b Backend) *gorm.DB {
	type dbProvider interface{ DB() *gorm.DB }
	if p, ok := b.(dbProvider); ok {
		return p.DB()
	}
	return nil
}

// Store is the failsafe adapter the rest of the engine talks to. Every
// persistence failure is logged and swallowed; the UI must never crash
// because storage is unavailable.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// NewStore wraps a backend. If backend is nil, an in-process memory store
// is used so callers always have a working adapter.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if backend == nil {
		backend = memory.New()
	}
	return &Store{backend: backend, logger: logger}
}

// OpenStore opens the configured backend and wraps it. If the backend
// cannot be opened the store degrades to in-memory persistence with a
// logged warning instead of failing.
func OpenStore(cfg config.StorageConfig, logger *zap.Logger) *Store {
	backend, err := Open(cfg)
	if err != nil {
		logger.Warn("storage unavailable, using in-memory fallback",
			zap.String("mode", cfg.Mode),
			zap.Error(err))
		backend = memory.New()
	}
	return NewStore(backend, logger)
}

// Get returns the value for key, or ok=false when absent or when the
// backend fails.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("storage get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}

// Set writes the value for key. Failures are logged, never surfaced.
func (s *Store) Set(ctx context.Context, key, value string) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.Warn("storage set failed", zap.String("key", key), zap.Error(err))
	}
}

// Remove deletes the key. Failures are logged, never surfaced.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Remove(ctx, key); err != nil {
		s.logger.Warn("storage remove failed", zap.String("key", key), zap.Error(err))
	}
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Close closes the wrapped backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
