package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/purse/fault"
)

const sigLineWidth = 64

// Sign returns the armored-style signature text over hash(message): standard
// base64 wrapped at 64 columns with a trailing newline, ready to sit between
// signature bookends.
func Sign(message []byte, signer *Nym, hashType string) (string, error) {
	if !signer.HasPrivate() {
		return "", fault.New(fault.KindCrypto, "PURSE-CRYPTO-501", "missing private signing key")
	}
	digest, err := Digest(hashType, message)
	if err != nil {
		return "", err
	}

	var sig []byte
	switch signer.alg {
	case Ed25519:
		sig = ed25519.Sign(signer.edPriv, digest)
	case Dilithium3:
		sig = make([]byte, mode3.SignatureSize)
		mode3.SignTo(signer.dlPriv, digest, sig)
	default:
		return "", fault.Newf(fault.KindCrypto, "PURSE-CRYPTO-301", "unsupported signing algorithm %q", signer.alg)
	}
	return wrapSignature(base64.StdEncoding.EncodeToString(sig)), nil
}

// Verify checks a signature produced by Sign against the public half of nym.
func Verify(message []byte, nym *Nym, signature string, hashType string) bool {
	if nym == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(signature), ""))
	if err != nil {
		return false
	}
	digest, err := Digest(hashType, message)
	if err != nil {
		return false
	}

	switch nym.alg {
	case Ed25519:
		if len(sig) != ed25519.SignatureSize || len(nym.signPub) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(nym.signPub), digest, sig)
	case Dilithium3:
		if len(sig) != mode3.SignatureSize || nym.dlPub == nil {
			return false
		}
		return mode3.Verify(nym.dlPub, digest, sig)
	default:
		return false
	}
}

func wrapSignature(s string) string {
	var sb strings.Builder
	for len(s) > sigLineWidth {
		sb.WriteString(s[:sigLineWidth])
		sb.WriteString("\n")
		s = s[sigLineWidth:]
	}
	sb.WriteString(s)
	sb.WriteString("\n")
	return sb.String()
}
