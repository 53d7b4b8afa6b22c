// Package localfs implements storage.Store on a directory tree.
package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"xdao.co/purse/storage"
)

// Store is a local filesystem-backed blob store.
//
// Each path segment becomes a directory level and the last segment a file.
// Writes go to a temporary file in the target directory and are renamed into
// place, so readers never observe a partial blob. Files are created 0600.
type Store struct {
	root string
}

var _ storage.Store = (*Store)(nil)

// New constructs a filesystem Store rooted at root. The directory will be created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store writes under.
func (s *Store) Root() string { return s.root }

func (s *Store) pathFor(path []string) (string, error) {
	if err := storage.ValidatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(append([]string{s.root}, path...)...), nil
}

func (s *Store) Exists(ctx context.Context, path ...string) (bool, error) {
	p, err := s.pathFor(path)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}

func (s *Store) Read(ctx context.Context, path ...string) ([]byte, error) {
	p, err := s.pathFor(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		if isMissing(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, storage.ErrNotFound
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if isMissing(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// isMissing also covers paths that run through an existing file.
func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func (s *Store) Write(ctx context.Context, data []byte, path ...string) error {
	p, err := s.pathFor(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
