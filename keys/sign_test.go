package keys

import (
	"io"
	"strings"
	"testing"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func mustNym(t *testing.T, seedByte byte, alg Algorithm) *Nym {
	t.Helper()
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	n, err := NymFromSeed(seed, alg)
	if err != nil {
		t.Fatalf("NymFromSeed: %v", err)
	}
	return n
}

func TestSign_Ed25519_Verifies(t *testing.T) {
	n := mustNym(t, 0x11, Ed25519)
	msg := []byte("<purse totalValue=\"500\"/>")

	for _, h := range []string{SHA256, SHA512, SHA3256} {
		sig, err := Sign(msg, n, h)
		if err != nil {
			t.Fatalf("Sign(%s): %v", h, err)
		}
		if !strings.HasSuffix(sig, "\n") {
			t.Fatalf("signature text must end with a newline")
		}
		if !Verify(msg, n.Public(), sig, h) {
			t.Fatalf("signature did not verify with %s", h)
		}
		if Verify([]byte("tampered"), n.Public(), sig, h) {
			t.Fatalf("signature verified over different message")
		}
	}
}

func TestSign_Dilithium3_Verifies(t *testing.T) {
	n, err := NewNym(io.Reader(&deterministicReader{}), Dilithium3)
	if err != nil {
		t.Fatalf("NewNym: %v", err)
	}
	msg := []byte("hello")
	sig, err := Sign(msg, n, SHA3256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(sig), "\n")
	for _, l := range lines {
		if len(l) > sigLineWidth {
			t.Fatalf("signature line too long: %d", len(l))
		}
	}
	if !Verify(msg, n, sig, SHA3256) {
		t.Fatalf("signature did not verify")
	}

	other := mustNym(t, 0x22, Dilithium3)
	if Verify(msg, other, sig, SHA3256) {
		t.Fatalf("signature verified under a different nym")
	}
}

func TestSign_RequiresPrivateKey(t *testing.T) {
	n := mustNym(t, 0x33, Ed25519).Public()
	if _, err := Sign([]byte("x"), n, SHA256); err == nil {
		t.Fatalf("expected error signing with a public-only nym")
	}
}

func TestDigest_UnknownHash(t *testing.T) {
	if _, err := Digest("MD5", []byte("x")); err == nil {
		t.Fatalf("expected unsupported hash error")
	}
	a, err := Digest("", []byte("x"))
	if err != nil {
		t.Fatalf("Digest default: %v", err)
	}
	b, _ := Digest("sha256", []byte("x"))
	if string(a) != string(b) {
		t.Fatalf("empty hash type should select SHA256")
	}
}
