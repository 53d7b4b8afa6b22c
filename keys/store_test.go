package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeyStore_InitializeDeriveLoad(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	seed := make([]byte, SeedSize)
	seed[0] = 1

	root, path, err := ks.InitializeNym("alice", seed, Ed25519, false)
	if err != nil {
		t.Fatalf("InitializeNym: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected key file mode %v", info.Mode().Perm())
	}
	if _, _, err := ks.InitializeNym("alice", seed, Ed25519, false); err == nil {
		t.Fatalf("expected refusal to overwrite without overwrite flag")
	}

	child, _, err := ks.DeriveNym("alice", "savings", false)
	if err != nil {
		t.Fatalf("DeriveNym: %v", err)
	}
	if child.ID() == root.ID() {
		t.Fatalf("derived nym must differ from root")
	}

	loaded, err := ks.LoadNym("alice", "")
	if err != nil {
		t.Fatalf("LoadNym root: %v", err)
	}
	if loaded.ID() != root.ID() {
		t.Fatalf("root id mismatch")
	}
	loadedChild, err := ks.LoadNym("alice", "savings")
	if err != nil {
		t.Fatalf("LoadNym child: %v", err)
	}
	if loadedChild.ID() != child.ID() {
		t.Fatalf("child id mismatch")
	}

	if _, err := ks.LoadNym("bob", ""); err == nil {
		t.Fatalf("expected missing nym error")
	}

	entries, err := ks.ListNyms()
	if err != nil {
		t.Fatalf("ListNyms: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "alice" || len(entries[0].Roles) != 1 || entries[0].Roles[0] != "savings" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestKeyStore_ListMissingDirectory(t *testing.T) {
	ks := &KeyStore{Directory: filepath.Join(t.TempDir(), "absent")}
	entries, err := ks.ListNyms()
	if err != nil || entries != nil {
		t.Fatalf("expected empty listing, got %v %v", entries, err)
	}
}
