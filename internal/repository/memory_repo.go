package repository

import (
	"context"
	"sync"

	"github.com/manjushapaul/Crypto-sub001/lib/errs"
)

// MemoryKVRepository keeps values in a map. Nothing survives a restart.
type MemoryKVRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{
		values: make(map[string]string),
	}
}

func (s *MemoryKVRepository) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", errs.ErrNotFound
	}
	return value, nil
}

func (s *MemoryKVRepository) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemoryKVRepository) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Len reports the number of stored keys.
func (s *MemoryKVRepository) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}
