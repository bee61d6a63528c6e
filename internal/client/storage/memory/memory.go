// Package memory provides an in-process SessionStore. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/iudanet/mailguard/internal/client/storage"
)

type Storage struct {
	values map[string]string
	mu     sync.RWMutex
}

var _ storage.SessionStore = (*Storage)(nil)

func New() *Storage {
	return &Storage{values: make(map[string]string)}
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}
	return v, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *Storage) Close() error { return nil }
