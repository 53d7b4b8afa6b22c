package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/purse/storage"
	"xdao.co/purse/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFS_FilesArePrivateAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := s.Write(ctx, []byte("one"), "purse", "n", "i"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Write(ctx, []byte("two"), "purse", "n", "i"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	fi, err := os.Stat(filepath.Join(dir, "purse", "n", "i"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Fatalf("file mode: got %o want 600", perm)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "purse", "n"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the blob in its directory, got %d entries", len(entries))
	}
}

func TestLocalFS_DirectoryIsNotABlob(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := s.Write(ctx, []byte("x"), "a", "b"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ok, err := s.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Fatalf("Exists reported a directory as a blob")
	}
	if _, err := s.Read(ctx, "a"); !storage.IsNotFound(err) {
		t.Fatalf("Read of a directory: got err=%v want ErrNotFound", err)
	}
}

func TestLocalFS_PathThroughFileIsNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := s.Write(ctx, []byte("x"), "purse", "n1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ok, err := s.Exists(ctx, "purse", "n1", "usd")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Fatalf("Exists reported a path below a file")
	}
	if _, err := s.Read(ctx, "purse", "n1", "usd"); !storage.IsNotFound(err) {
		t.Fatalf("Read below a file: got err=%v want ErrNotFound", err)
	}
}

func TestLocalFS_ContentStoreDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	cas := storage.ContentStore{Store: s}

	orig := []byte("original")
	id, err := cas.Put(ctx, orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	str := id.String()
	path := filepath.Join(dir, storage.ContentFolder, str[len(str)-2:], str)
	if err := os.WriteFile(path, []byte("corrupted"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := cas.Get(ctx, id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}
	if _, err := cas.Put(ctx, orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
}
