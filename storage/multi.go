package storage

import (
	"context"
	"errors"
)

// MultiStore provides deterministic, ordered fallback across multiple stores.
//
// Read order is the slice order in Stores; callers MUST supply a fixed order.
// Write is defined to write only to the first store.
type MultiStore struct {
	Stores []Store
}

var _ Store = MultiStore{}

var errNoStores = errors.New("storage: MultiStore has no stores")

func (m MultiStore) Write(ctx context.Context, data []byte, path ...string) error {
	if len(m.Stores) == 0 {
		return errNoStores
	}
	if err := ValidatePath(path); err != nil {
		return err
	}
	return m.Stores[0].Write(ctx, data, path...)
}

func (m MultiStore) Read(ctx context.Context, path ...string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	for _, s := range m.Stores {
		b, err := s.Read(ctx, path...)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiStore) Exists(ctx context.Context, path ...string) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	for _, s := range m.Stores {
		ok, err := s.Exists(ctx, path...)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
