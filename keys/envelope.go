package keys

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/nacl/box"

	"xdao.co/purse/fault"
)

// Seal encrypts plaintext to the box key of nym. Only the public half is
// needed.
func Seal(to *Nym, plaintext []byte) ([]byte, error) {
	return SealFrom(rand.Reader, to, plaintext)
}

// SealFrom is Seal with an explicit randomness source.
func SealFrom(r io.Reader, to *Nym, plaintext []byte) ([]byte, error) {
	if to == nil || to.boxPub == nil {
		return nil, fault.New(fault.KindOwnership, "PURSE-OWN-001", "missing recipient box key")
	}
	out, err := box.SealAnonymous(nil, plaintext, to.boxPub, r)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-OWN-002", "seal envelope", err)
	}
	return out, nil
}

// Open decrypts an envelope sealed to nym. It fails if nym has no private box
// key or if the envelope was sealed to someone else.
func Open(nym *Nym, envelope []byte) ([]byte, error) {
	if nym == nil || nym.boxPriv == nil {
		return nil, fault.New(fault.KindOwnership, "PURSE-OWN-003", "missing private box key")
	}
	out, ok := box.OpenAnonymous(nil, envelope, nym.boxPub, nym.boxPriv)
	if !ok {
		return nil, fault.New(fault.KindOwnership, "PURSE-OWN-004", "envelope cannot be opened by this nym")
	}
	return out, nil
}
