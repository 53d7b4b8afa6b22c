package storage

import (
	"context"
	"fmt"
)

// NamedStore associates a Store with a stable backend name.
//
// This is used for multi-backend orchestration where callers need to retain
// per-backend metadata (e.g., for reporting or auditing).
type NamedStore struct {
	Name  string
	Store Store
}

// ReplicatingStore writes to all configured backends.
//
// Reads fall back in order. A write succeeds only when every backend accepted
// it; the first failure is returned with the backend name attached.
type ReplicatingStore struct {
	Backends []NamedStore
}

var _ Store = ReplicatingStore{}

func (r ReplicatingStore) Write(ctx context.Context, data []byte, path ...string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if len(r.Backends) == 0 {
		return fmt.Errorf("storage: ReplicatingStore has no backends")
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			return fmt.Errorf("storage: nil store for backend %q", b.Name)
		}
		if err := b.Store.Write(ctx, data, path...); err != nil {
			return fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r ReplicatingStore) Read(ctx context.Context, path ...string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		out, err := b.Store.Read(ctx, path...)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingStore) Exists(ctx context.Context, path ...string) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		ok, err := b.Store.Exists(ctx, path...)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
