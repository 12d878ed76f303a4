// Package memory is the in-process storage backend, used as the default
// mode and as the fallback when a configured backend is unavailable.
package memory

import (
	"context"
	"sync"
)

// Store is an in-process string KV store.
type Store struct {
	mu sync.RWMutex
	kv map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{kv: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len reports the number of stored keys. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.kv)
}
