package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"xdao.co/purse/fault"
)

const (
	symmetricVersion = "v1"
	saltSize         = 16
	nonceSize        = 24
	secretSize       = 32
)

// KDFParams are the argon2id parameters used to derive a wrapping key from a
// passphrase.
type KDFParams struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultKDF matches the cost used for wallet passwords.
var DefaultKDF = KDFParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// SymmetricKey is a random 32-byte secret stored wrapped under a key derived
// from a passphrase. The secret itself never leaves the package; callers
// present the passphrase on every Encrypt and Decrypt.
type SymmetricKey struct {
	kdf     KDFParams
	salt    []byte
	wrapped []byte // nonce || secretbox(secret)
	id      string
}

// NewSymmetricKey generates a new key protected by passphrase.
func NewSymmetricKey(passphrase []byte) (*SymmetricKey, error) {
	return NewSymmetricKeyWithParams(rand.Reader, passphrase, DefaultKDF)
}

// NewSymmetricKeyWithParams generates a new key with explicit randomness and
// KDF cost.
func NewSymmetricKeyWithParams(r io.Reader, passphrase []byte, kdf KDFParams) (*SymmetricKey, error) {
	if len(passphrase) == 0 {
		return nil, fault.New(fault.KindCrypto, "PURSE-SYM-001", "empty passphrase")
	}
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-SYM-002", "read salt", err)
	}
	var secret [secretSize]byte
	if _, err := io.ReadFull(r, secret[:]); err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-SYM-002", "read secret", err)
	}

	k := &SymmetricKey{kdf: kdf, salt: salt}
	wrapping := k.wrappingKey(passphrase)
	wrapped, err := sealSecretbox(r, wrapping, secret[:])
	if err != nil {
		return nil, err
	}
	k.wrapped = wrapped
	k.computeID()
	return k, nil
}

func (k *SymmetricKey) computeID() {
	h := sha256.New()
	_, _ = h.Write(k.salt)
	_, _ = h.Write(k.wrapped)
	k.id = base58.Encode(h.Sum(nil))
}

// ID identifies the key. It does not reveal the secret.
func (k *SymmetricKey) ID() string { return k.id }

func (k *SymmetricKey) wrappingKey(passphrase []byte) *[secretSize]byte {
	derived := argon2.IDKey(passphrase, k.salt, k.kdf.Time, k.kdf.Memory, k.kdf.Threads, secretSize)
	var out [secretSize]byte
	copy(out[:], derived)
	return &out
}

func (k *SymmetricKey) secret(passphrase []byte) (*[secretSize]byte, error) {
	plain, ok := openSecretbox(k.wrappingKey(passphrase), k.wrapped)
	if !ok || len(plain) != secretSize {
		return nil, fault.New(fault.KindOwnership, "PURSE-SYM-010", "wrong passphrase for symmetric key")
	}
	var out [secretSize]byte
	copy(out[:], plain)
	return &out, nil
}

// CheckPassphrase reports whether passphrase unlocks k.
func (k *SymmetricKey) CheckPassphrase(passphrase []byte) bool {
	_, err := k.secret(passphrase)
	return err == nil
}

// Encrypt seals plaintext under the key unlocked by passphrase.
func (k *SymmetricKey) Encrypt(passphrase, plaintext []byte) ([]byte, error) {
	secret, err := k.secret(passphrase)
	if err != nil {
		return nil, err
	}
	return sealSecretbox(rand.Reader, secret, plaintext)
}

// Decrypt opens ciphertext produced by Encrypt.
func (k *SymmetricKey) Decrypt(passphrase, ciphertext []byte) ([]byte, error) {
	secret, err := k.secret(passphrase)
	if err != nil {
		return nil, err
	}
	plain, ok := openSecretbox(secret, ciphertext)
	if !ok {
		return nil, fault.New(fault.KindOwnership, "PURSE-SYM-011", "ciphertext was not produced by this key")
	}
	return plain, nil
}

// Marshal encodes k as "v1:<time>:<memory>:<threads>:<salt>:<wrapped>".
func (k *SymmetricKey) Marshal() string {
	return strings.Join([]string{
		symmetricVersion,
		strconv.FormatUint(uint64(k.kdf.Time), 10),
		strconv.FormatUint(uint64(k.kdf.Memory), 10),
		strconv.FormatUint(uint64(k.kdf.Threads), 10),
		base64.StdEncoding.EncodeToString(k.salt),
		base64.StdEncoding.EncodeToString(k.wrapped),
	}, ":")
}

// ParseSymmetricKey decodes the output of Marshal.
func ParseSymmetricKey(s string) (*SymmetricKey, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 6 || parts[0] != symmetricVersion {
		return nil, fault.New(fault.KindDecode, "PURSE-SYM-020", "invalid symmetric key encoding")
	}
	t, err1 := strconv.ParseUint(parts[1], 10, 32)
	m, err2 := strconv.ParseUint(parts[2], 10, 32)
	p, err3 := strconv.ParseUint(parts[3], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil || t == 0 || p == 0 {
		return nil, fault.New(fault.KindDecode, "PURSE-SYM-021", "invalid symmetric key parameters")
	}
	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) != saltSize {
		return nil, fault.New(fault.KindDecode, "PURSE-SYM-022", "invalid symmetric key salt")
	}
	wrapped, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(wrapped) != nonceSize+secretbox.Overhead+secretSize {
		return nil, fault.New(fault.KindDecode, "PURSE-SYM-023", "invalid wrapped symmetric secret")
	}
	k := &SymmetricKey{
		kdf:     KDFParams{Time: uint32(t), Memory: uint32(m), Threads: uint8(p)},
		salt:    salt,
		wrapped: wrapped,
	}
	k.computeID()
	return k, nil
}

func (k *SymmetricKey) String() string {
	return fmt.Sprintf("symmetric(%s)", k.id)
}

func sealSecretbox(r io.Reader, key *[secretSize]byte, plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-SYM-003", "read nonce", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

func openSecretbox(key *[secretSize]byte, ciphertext []byte) ([]byte, bool) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return nil, false
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	return secretbox.Open(nil, ciphertext[nonceSize:], &nonce, key)
}
