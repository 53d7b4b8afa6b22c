package leveldb

import (
	"context"
	"testing"

	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"

	"xdao.co/purse/storage"
	"xdao.co/purse/storage/testkit"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStorage(ldb_storage.NewMemStorage())
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLevelDB_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return newMemStore(t)
	})
}

func TestLevelDB_ReopenDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Write(ctx, []byte("persisted"), "purse", "n", "i"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ro, err := Open(dir, true)
	if err != nil {
		t.Fatalf("Open read-only failed: %v", err)
	}
	defer ro.Close()
	got, err := ro.Read(ctx, "purse", "n", "i")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "persisted" {
		t.Fatalf("Read: got %q want %q", got, "persisted")
	}
}

func TestLevelDB_MissingDirectoryReadOnly(t *testing.T) {
	if _, err := Open(t.TempDir()+"/absent", true); err == nil {
		t.Fatalf("read-only Open of a missing database should fail")
	}
}
