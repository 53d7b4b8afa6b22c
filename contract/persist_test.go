package contract

import (
	"context"
	"errors"
	"testing"

	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/storage"
)

// plainCAS hides ContentStore.PutAs from Archive.
type plainCAS struct{ storage.ContentStore }

func TestStoreLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemStore()
	c := mustCreate(t, mustNym(t, 0xA1))

	if err := c.Store(ctx, mem, "contracts", "sample.otc"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if dir, file := c.Location(); dir != "contracts" || file != "sample.otc" {
		t.Fatalf("location = %s/%s", dir, file)
	}

	d := New(TypeContract)
	if err := d.Load(ctx, mem, "contracts", "sample.otc"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Raw() != c.Raw() || !d.ID().Equals(c.ID()) {
		t.Fatalf("loaded contract differs from stored one")
	}

	err := d.Load(ctx, mem, "contracts", "missing.otc")
	if !fault.IsKind(err, fault.KindStorage) || !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected storage not-found error, got %v", err)
	}

	if err := New(TypeContract).Store(ctx, mem, "contracts", "x"); fault.RuleIDOf(err) != "PURSE-STORE-001" {
		t.Fatalf("expected PURSE-STORE-001 for unsaved contract, got %v", err)
	}
}

func TestArchiveFetch(t *testing.T) {
	ctx := context.Background()
	cas := storage.ContentStore{Store: storage.NewMemStore()}

	for _, h := range []string{keys.SHA256, keys.SHA512, keys.SHA3256} {
		t.Run(h, func(t *testing.T) {
			c := mustCreate(t, mustNym(t, 0xA1), WithHashType(h))
			id, err := c.Archive(ctx, cas)
			if err != nil {
				t.Fatalf("Archive: %v", err)
			}
			if !id.Equals(c.ID()) {
				t.Fatalf("archived under %s, want %s", id, c.ID())
			}

			d := New(TypeContract)
			if err := d.Fetch(ctx, cas, id); err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if d.Raw() != c.Raw() || d.HashType() != h {
				t.Fatalf("fetched contract differs")
			}
		})
	}

	c := mustCreate(t, mustNym(t, 0xA1), WithHashType(keys.SHA512))
	if _, err := c.Archive(ctx, plainCAS{cas}); fault.RuleIDOf(err) != "PURSE-STORE-021" {
		t.Fatalf("expected PURSE-STORE-021, got %v", err)
	}
}

func TestFetch_RejectsMissing(t *testing.T) {
	ctx := context.Background()
	cas := storage.ContentStore{Store: storage.NewMemStore()}
	c := mustCreate(t, mustNym(t, 0xA1))

	d := New(TypeContract)
	if err := d.Fetch(ctx, cas, c.ID()); !fault.IsKind(err, fault.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
