package keys

import (
	"crypto/sha256"
	"crypto/sha512"
	"strings"

	"golang.org/x/crypto/sha3"

	"xdao.co/purse/fault"
)

// Hash algorithm names as written into the "Hash:" header of a contract.
const (
	SHA256  = "SHA256"
	SHA512  = "SHA512"
	SHA3256 = "SHA3-256"

	// DefaultHashType is used when a contract does not name one.
	DefaultHashType = SHA256
)

// NormalizeHashType upper-cases a hash name and maps the empty name to the default.
func NormalizeHashType(hashType string) string {
	h := strings.ToUpper(strings.TrimSpace(hashType))
	if h == "" {
		return DefaultHashType
	}
	return h
}

// Digest hashes message with the named algorithm.
func Digest(hashType string, message []byte) ([]byte, error) {
	switch NormalizeHashType(hashType) {
	case SHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case SHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case SHA3256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fault.Newf(fault.KindCrypto, "PURSE-CRYPTO-201", "unsupported hash algorithm %q", hashType)
	}
}
