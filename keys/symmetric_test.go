package keys

import (
	"bytes"
	"testing"

	"xdao.co/purse/fault"
)

var testKDF = KDFParams{Time: 1, Memory: 1024, Threads: 1}

func TestSymmetricKey_EncryptDecrypt(t *testing.T) {
	pass := []byte("correct horse")
	k, err := NewSymmetricKeyWithParams(&deterministicReader{b: 9}, pass, testKDF)
	if err != nil {
		t.Fatalf("NewSymmetricKeyWithParams: %v", err)
	}
	ct, err := k.Encrypt(pass, []byte("token text"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := k.Decrypt(pass, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, []byte("token text")) {
		t.Fatalf("plaintext mismatch")
	}

	if _, err := k.Decrypt([]byte("wrong"), ct); !fault.IsKind(err, fault.KindOwnership) {
		t.Fatalf("expected KindOwnership for wrong passphrase, got %v", err)
	}
	if k.CheckPassphrase([]byte("wrong")) || !k.CheckPassphrase(pass) {
		t.Fatalf("CheckPassphrase mismatch")
	}

	other, err := NewSymmetricKeyWithParams(&deterministicReader{b: 77}, pass, testKDF)
	if err != nil {
		t.Fatalf("NewSymmetricKeyWithParams: %v", err)
	}
	if _, err := other.Decrypt(pass, ct); !fault.IsKind(err, fault.KindOwnership) {
		t.Fatalf("expected KindOwnership for a different key, got %v", err)
	}
}

func TestSymmetricKey_MarshalRoundTrip(t *testing.T) {
	pass := []byte("pw")
	k, err := NewSymmetricKeyWithParams(&deterministicReader{}, pass, testKDF)
	if err != nil {
		t.Fatalf("NewSymmetricKeyWithParams: %v", err)
	}
	parsed, err := ParseSymmetricKey(k.Marshal())
	if err != nil {
		t.Fatalf("ParseSymmetricKey: %v", err)
	}
	if parsed.ID() != k.ID() {
		t.Fatalf("id mismatch")
	}
	ct, err := k.Encrypt(pass, []byte("x"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := parsed.Decrypt(pass, ct); err != nil {
		t.Fatalf("parsed key cannot decrypt: %v", err)
	}

	for _, bad := range []string{"", "v2:1:1:1:AA:AA", "v1:0:1:1:AA:AA", "v1:1:1:1:!!:AA"} {
		if _, err := ParseSymmetricKey(bad); !fault.IsKind(err, fault.KindDecode) {
			t.Fatalf("ParseSymmetricKey(%q): expected KindDecode, got %v", bad, err)
		}
	}
	if _, err := NewSymmetricKeyWithParams(&deterministicReader{}, nil, testKDF); err == nil {
		t.Fatalf("expected empty passphrase rejection")
	}
}
