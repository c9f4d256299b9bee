package repository

import (
	"context"
	"sync"
)

// MemoryKVRepository keeps values in process memory. Used when no database is
// configured and in tests.
type MemoryKVRepository struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{m: make(map[string][]byte)}
}

func (r *MemoryKVRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *MemoryKVRepository) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	r.mu.Lock()
	r.m[key] = v
	r.mu.Unlock()
	return nil
}

func (r *MemoryKVRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.m, key)
	r.mu.Unlock()
	return nil
}
