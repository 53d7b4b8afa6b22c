package keys

import (
	"bytes"
	"testing"
)

func TestNymFromSeed_Deterministic(t *testing.T) {
	a := mustNym(t, 0x42, Ed25519)
	b := mustNym(t, 0x42, Ed25519)
	if a.ID() != b.ID() || a.MasterCredID() != b.MasterCredID() || a.SubCredID() != b.SubCredID() {
		t.Fatalf("expected identical ids from identical seeds")
	}
	c := mustNym(t, 0x43, Ed25519)
	if a.ID() == c.ID() {
		t.Fatalf("expected different ids from different seeds")
	}
	if !a.HasPrivate() || a.Public().HasPrivate() {
		t.Fatalf("HasPrivate mismatch")
	}
}

func TestNym_MarshalPublicRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{Ed25519, Dilithium3} {
		n := mustNym(t, 0x07, alg)
		parsed, err := ParsePublicNym(n.MarshalPublic())
		if err != nil {
			t.Fatalf("ParsePublicNym(%s): %v", alg, err)
		}
		if parsed.ID() != n.ID() {
			t.Fatalf("%s: id mismatch after round trip", alg)
		}
		if parsed.HasPrivate() {
			t.Fatalf("%s: parsed nym must be public-only", alg)
		}
		if !n.Equal(parsed) {
			t.Fatalf("%s: Equal returned false", alg)
		}
	}

	if _, err := ParsePublicNym("ed25519:only-two"); err == nil {
		t.Fatalf("expected malformed encoding error")
	}
	if _, err := ParsePublicNym("rsa:AAAA:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="); err == nil {
		t.Fatalf("expected unsupported algorithm error")
	}
}

func TestNym_Metadata(t *testing.T) {
	n := mustNym(t, 0x01, Ed25519)
	m := n.Metadata()
	if !m.HasMetadata() {
		t.Fatalf("expected metadata")
	}
	if m.KeyType != KeyTypeSigning || m.NymID != n.ID()[0] || m.MasterCredID != n.MasterCredID()[0] || m.SubCredID != n.SubCredID()[0] {
		t.Fatalf("unexpected metadata %q", m.String())
	}

	var set Metadata
	if err := set.Set('S', 'a', 'B', '9'); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if set.String() != "SaB9" {
		t.Fatalf("String: %q", set.String())
	}
	if err := set.Set('X', 'a', 'b', 'c'); err == nil {
		t.Fatalf("expected invalid key type error")
	}
	if err := set.Set('A', '+', 'b', 'c'); err == nil {
		t.Fatalf("expected invalid character error")
	}
	if (Metadata{}).HasMetadata() {
		t.Fatalf("zero metadata must report absent")
	}
}

func TestSealOpen(t *testing.T) {
	alice := mustNym(t, 0xA1, Ed25519)
	bob := mustNym(t, 0xB0, Ed25519)
	msg := []byte("spendable coin")

	env, err := Seal(alice.Public(), msg)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := Open(alice, env)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("plaintext mismatch")
	}
	if _, err := Open(bob, env); err == nil {
		t.Fatalf("expected open failure for a different nym")
	}
	if _, err := Open(alice.Public(), env); err == nil {
		t.Fatalf("expected open failure without private key")
	}
}
