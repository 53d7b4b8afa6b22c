package contract

import (
	"context"
	"testing"

	"xdao.co/purse/fault"
	"xdao.co/purse/storage"
)

func TestSignedFile_SaveLoad(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemStore()
	alice := mustNym(t, 0xA1)

	f := NewSignedFile("nyms", "alice.nym")
	f.SetPayload("-----not a bookend-----\nline two\n")
	if err := f.SaveFile(ctx, mem, alice); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if f.Type() != TypeFile {
		t.Fatalf("type = %q", f.Type())
	}

	g := NewSignedFile("nyms", "alice.nym")
	if err := g.LoadFile(ctx, mem); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if g.Payload() != f.Payload() {
		t.Fatalf("payload = %q", g.Payload())
	}
	if g.SignerNymID() != alice.ID() {
		t.Fatalf("signer = %q", g.SignerNymID())
	}
	if dir, file := g.PurportedLocation(); dir != "nyms" || file != "alice.nym" {
		t.Fatalf("purported location = %s/%s", dir, file)
	}
	if !g.Verify(alice) {
		t.Fatalf("expected signed file to verify")
	}
}

func TestSignedFile_DetectsMovedFile(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemStore()
	alice := mustNym(t, 0xA1)

	f := NewSignedFile("nyms", "alice.nym")
	f.SetPayload("payload")
	if err := f.SaveFile(ctx, mem, alice); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	data, err := mem.Read(ctx, "nyms", "alice.nym")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := mem.Write(ctx, data, "nyms", "mallory.nym"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	g := NewSignedFile("nyms", "mallory.nym")
	err = g.LoadFile(ctx, mem)
	if fault.RuleIDOf(err) != "PURSE-FILE-010" || !fault.IsKind(err, fault.KindScope) {
		t.Fatalf("expected PURSE-FILE-010, got %v", err)
	}
	if g.Payload() != "" || g.Raw() != "" {
		t.Fatalf("rejected file left state behind")
	}
}
