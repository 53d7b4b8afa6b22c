package keys

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// SeedSize is the size of a nym root seed.
const SeedSize = 32

const derivationLabel = "xdao-purse-nym-v1"

// Roles used when expanding a root seed into a nym's key pairs.
const (
	roleSign = "sign"
	roleBox  = "box"
)

// DeriveRoleSeed deterministically derives a role-specific seed from a root seed.
//
// The same root seed always yields the same nym, so a KeyStore only needs to
// persist root seeds.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(derivationLabel))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	if len(sum) < SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, SeedSize)
	copy(out, sum[:SeedSize])
	return out, nil
}

// CheckRole validates a role label.
func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	return checkLabel(role, "role")
}

// CheckKeyName validates a KeyStore entry name.
func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	return checkLabel(name, "name")
}

func checkLabel(s, what string) error {
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, what)
	}
	return nil
}
