// Package storage defines the blob stores purses and contracts persist to: a
// path-keyed Store and a content-addressed CAS layered over it.
package storage

import (
	"context"
	"strings"
)

// Store is a path-keyed blob store. A path is an ordered list of non-empty
// segments (e.g. "purse", notaryID, nymID, instrumentID).
//
// Contract:
// - Write MUST replace any existing blob at the path atomically.
// - Read MUST return ErrNotFound when nothing is stored at the path.
// - Invalid paths MUST fail with ErrInvalidPath before touching the backend.
type Store interface {
	Exists(ctx context.Context, path ...string) (bool, error)
	Read(ctx context.Context, path ...string) ([]byte, error)
	Write(ctx context.Context, data []byte, path ...string) error
}

// ValidatePath checks that path is usable as a storage key: at least one
// segment, no empty segments, no separators and no dot segments.
func ValidatePath(path []string) error {
	if len(path) == 0 {
		return ErrInvalidPath
	}
	for _, seg := range path {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidPath
		}
		if strings.ContainsAny(seg, "/\\\x00") {
			return ErrInvalidPath
		}
	}
	return nil
}

// JoinPath renders path as a single "/"-separated key.
func JoinPath(path []string) string { return strings.Join(path, "/") }

// SplitPath reverses JoinPath and validates the result.
func SplitPath(key string) ([]string, error) {
	path := strings.Split(key, "/")
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	return path, nil
}
