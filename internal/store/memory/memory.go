package memory

import (
	"context"
	"sync"
)

// Store keeps every key in process memory. Nothing survives a restart; it is
// the default backend for demos and the backing store of most tests.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

// NewSeeded returns a store preloaded with values, keyed by store key.
func NewSeeded(values map[string]string) *Store {
	s := New()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
