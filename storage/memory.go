package storage

import (
	"context"
	"sync"
)

// MemStore is an in-process Store, useful for tests and ephemeral purses.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore { return &MemStore{blobs: map[string][]byte{}} }

func (m *MemStore) Exists(ctx context.Context, path ...string) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[JoinPath(path)]
	return ok, nil
}

func (m *MemStore) Read(ctx context.Context, path ...string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[JoinPath(path)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Write(ctx context.Context, data []byte, path ...string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[JoinPath(path)] = append([]byte(nil), data...)
	return nil
}
