// Package testkit holds the conformance suite every Store backend runs.
package testkit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/purse/cidutil"
	"xdao.co/purse/storage"
)

// NewStore constructs a fresh, empty Store instance for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

// RunStoreConformance checks the Store contract and, through
// storage.ContentStore, the CAS contract on top of it.
func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte("-----BEGIN SIGNED PURSE-----\nHash: SHA256\n")
		if err := s.Write(ctx, want, "purse", "notary", "nym", "instrument"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		got, err := s.Read(ctx, "purse", "notary", "nym", "instrument")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Read bytes mismatch")
		}
		ok, err := s.Exists(ctx, "purse", "notary", "nym", "instrument")
		if err != nil || !ok {
			t.Fatalf("Exists after Write: got (%v, %v) want (true, nil)", ok, err)
		}
	})

	t.Run("WriteReplaces", func(t *testing.T) {
		s := newStore(t)
		if err := s.Write(ctx, []byte("one"), "a", "b"); err != nil {
			t.Fatalf("Write(1) failed: %v", err)
		}
		if err := s.Write(ctx, []byte("two"), "a", "b"); err != nil {
			t.Fatalf("Write(2) failed: %v", err)
		}
		got, err := s.Read(ctx, "a", "b")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(got) != "two" {
			t.Fatalf("Read after replace: got %q want %q", got, "two")
		}
	})

	t.Run("MissingIsNotFound", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Exists(ctx, "missing", "blob")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if ok {
			t.Fatalf("Exists returned true for missing path")
		}
		if _, err := s.Read(ctx, "missing", "blob"); !storage.IsNotFound(err) {
			t.Fatalf("Read missing: got err=%v want ErrNotFound", err)
		}
	})

	t.Run("PathsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		if err := s.Write(ctx, []byte("x"), "a", "b"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := s.Read(ctx, "a"); err == nil {
			t.Fatalf("Read of a parent path should fail")
		}
		if _, err := s.Read(ctx, "a", "b", "c"); !storage.IsNotFound(err) {
			t.Fatalf("Read of a child path: got err=%v want ErrNotFound", err)
		}
		if ok, err := s.Exists(ctx, "a", "b", "c"); err != nil || ok {
			t.Fatalf("Exists of a child path: got ok=%v err=%v want false", ok, err)
		}
	})

	t.Run("RejectInvalidPath", func(t *testing.T) {
		s := newStore(t)
		for _, path := range [][]string{nil, {""}, {"a", ".."}, {"a/b"}} {
			if err := s.Write(ctx, []byte("x"), path...); !errors.Is(err, storage.ErrInvalidPath) {
				t.Fatalf("Write(%q): got err=%v want ErrInvalidPath", path, err)
			}
			if _, err := s.Read(ctx, path...); !errors.Is(err, storage.ErrInvalidPath) {
				t.Fatalf("Read(%q): got err=%v want ErrInvalidPath", path, err)
			}
		}
	})

	t.Run("ContentPutGetRoundTrip", func(t *testing.T) {
		cas := storage.ContentStore{Store: newStore(t)}
		want := []byte("hello, purse storage")

		id, err := cas.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.CIDv1RawSHA256CID(want)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}
		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}

		again, err := cas.Put(ctx, want)
		if err != nil || again != id {
			t.Fatalf("Put not idempotent: got (%s, %v)", again, err)
		}
	})

	t.Run("ContentHasAndNotFound", func(t *testing.T) {
		cas := storage.ContentStore{Store: newStore(t)}
		b := []byte("missing")
		id, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}
		if cas.Has(ctx, id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}
		if _, err := cas.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(ctx, id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("ContentRejectUndefCID", func(t *testing.T) {
		cas := storage.ContentStore{Store: newStore(t)}
		var undef cid.Cid
		if cas.Has(ctx, undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}
