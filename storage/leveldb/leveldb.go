// Package leveldb implements storage.Store on a goleveldb database. Each
// blob is one key, the "/"-joined path.
package leveldb

import (
	"context"
	"errors"

	ldb "github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"

	"xdao.co/purse/storage"
)

// Store is a goleveldb-backed blob store.
type Store struct {
	db *ldb.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) a database directory.
func Open(dir string, readOnly bool) (*Store, error) {
	if dir == "" {
		return nil, errors.New("leveldb: database directory is required")
	}
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}
	db, err := ldb.OpenFile(dir, opt)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenStorage opens a database over an existing goleveldb storage, e.g.
// ldb_storage.NewMemStorage() in tests.
func OpenStorage(s ldb_storage.Storage) (*Store, error) {
	db, err := ldb.Open(s, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func key(path []string) ([]byte, error) {
	if err := storage.ValidatePath(path); err != nil {
		return nil, err
	}
	return []byte(storage.JoinPath(path)), nil
}

func (s *Store) Exists(ctx context.Context, path ...string) (bool, error) {
	k, err := key(path)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.db.Has(k, nil)
}

func (s *Store) Read(ctx context.Context, path ...string) ([]byte, error) {
	k, err := key(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := s.db.Get(k, nil)
	if errors.Is(err, ldb.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	return val, err
}

func (s *Store) Write(ctx context.Context, data []byte, path ...string) error {
	k, err := key(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Put(k, data, &ldb_opt.WriteOptions{Sync: true})
}
