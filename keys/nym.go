package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/curve25519"

	"xdao.co/purse/fault"
)

// Algorithm names a signing scheme.
type Algorithm string

const (
	Ed25519    Algorithm = "ed25519"
	Dilithium3 Algorithm = "dilithium3"
)

// Nym is an identity: signing keys plus box keys for sealed envelopes.
//
// A public-only Nym (see Public) can verify signatures and be sealed to, but
// cannot sign or open.
type Nym struct {
	alg Algorithm

	signPub []byte
	edPriv  ed25519.PrivateKey
	dlPub   *mode3.PublicKey
	dlPriv  *mode3.PrivateKey

	boxPub  *[32]byte
	boxPriv *[32]byte

	id           string
	masterCredID string
	subCredID    string
}

// NewNym generates a nym from SeedSize bytes read from rand.
func NewNym(rand io.Reader, alg Algorithm) (*Nym, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-001", "read nym seed", err)
	}
	return NymFromSeed(seed, alg)
}

// NymFromSeed expands a root seed into a nym.
func NymFromSeed(seed []byte, alg Algorithm) (*Nym, error) {
	signSeed, err := DeriveRoleSeed(seed, roleSign)
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-002", "derive signing seed", err)
	}
	boxSeed, err := DeriveRoleSeed(seed, roleBox)
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-002", "derive box seed", err)
	}

	n := &Nym{alg: alg}
	switch alg {
	case Ed25519:
		n.edPriv = ed25519.NewKeyFromSeed(signSeed)
		n.signPub = append([]byte(nil), n.edPriv.Public().(ed25519.PublicKey)...)
	case Dilithium3:
		var s [mode3.SeedSize]byte
		copy(s[:], signSeed)
		n.dlPub, n.dlPriv = mode3.NewKeyFromSeed(&s)
		n.signPub, err = n.dlPub.MarshalBinary()
		if err != nil {
			return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-003", "encode dilithium3 public key", err)
		}
	default:
		return nil, fault.Newf(fault.KindCrypto, "PURSE-KEY-004", "unsupported signing algorithm %q", alg)
	}

	var priv [32]byte
	copy(priv[:], boxSeed)
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-005", "derive box public key", err)
	}
	n.boxPriv = &priv
	n.boxPub = new([32]byte)
	copy(n.boxPub[:], pub)

	n.computeIDs()
	return n, nil
}

func (n *Nym) computeIDs() {
	h := sha256.New()
	_, _ = h.Write([]byte(n.alg))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(n.signPub)
	_, _ = h.Write(n.boxPub[:])
	n.id = base58.Encode(h.Sum(nil))

	m := sha256.Sum256(append([]byte("master\x00"), n.signPub...))
	n.masterCredID = base58.Encode(m[:])
	s := sha256.Sum256(append([]byte("sub\x00"), n.boxPub[:]...))
	n.subCredID = base58.Encode(s[:])
}

func (n *Nym) ID() string           { return n.id }
func (n *Nym) MasterCredID() string { return n.masterCredID }
func (n *Nym) SubCredID() string    { return n.subCredID }
func (n *Nym) Algorithm() Algorithm { return n.alg }

// HasPrivate reports whether n can sign and open envelopes.
func (n *Nym) HasPrivate() bool {
	if n == nil || n.boxPriv == nil {
		return false
	}
	return n.edPriv != nil || n.dlPriv != nil
}

// Public returns a copy of n without private key material.
func (n *Nym) Public() *Nym {
	if n == nil {
		return nil
	}
	return &Nym{
		alg:          n.alg,
		signPub:      append([]byte(nil), n.signPub...),
		dlPub:        n.dlPub,
		boxPub:       n.boxPub,
		id:           n.id,
		masterCredID: n.masterCredID,
		subCredID:    n.subCredID,
	}
}

// Metadata returns the signing-key metadata for n.
func (n *Nym) Metadata() Metadata {
	if n == nil || n.id == "" {
		return Metadata{}
	}
	return Metadata{
		KeyType:      KeyTypeSigning,
		NymID:        n.id[0],
		MasterCredID: n.masterCredID[0],
		SubCredID:    n.subCredID[0],
	}
}

// Equal reports whether a and b carry the same public keys.
func (n *Nym) Equal(o *Nym) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.id == o.id
}

// MarshalPublic encodes the public half of n as "<alg>:<sign key>:<box key>"
// with standard base64 keys.
func (n *Nym) MarshalPublic() string {
	return string(n.alg) + ":" +
		base64.StdEncoding.EncodeToString(n.signPub) + ":" +
		base64.StdEncoding.EncodeToString(n.boxPub[:])
}

// ParsePublicNym decodes the output of MarshalPublic.
func ParsePublicNym(s string) (*Nym, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return nil, fault.New(fault.KindCrypto, "PURSE-KEY-010", "invalid public nym encoding")
	}
	signPub, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-011", "invalid signing key base64", err)
	}
	boxPub, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-012", "invalid box key base64", err)
	}
	if len(boxPub) != 32 {
		return nil, fault.Newf(fault.KindCrypto, "PURSE-KEY-013", "box key must be 32 bytes, got %d", len(boxPub))
	}

	n := &Nym{alg: Algorithm(parts[0]), signPub: signPub, boxPub: new([32]byte)}
	copy(n.boxPub[:], boxPub)
	switch n.alg {
	case Ed25519:
		if len(signPub) != ed25519.PublicKeySize {
			return nil, fault.New(fault.KindCrypto, "PURSE-KEY-014", "invalid ed25519 public key length")
		}
	case Dilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(signPub); err != nil {
			return nil, fault.Wrap(fault.KindCrypto, "PURSE-KEY-015", "invalid dilithium3 public key", err)
		}
		n.dlPub = &pk
	default:
		return nil, fault.Newf(fault.KindCrypto, "PURSE-KEY-004", "unsupported signing algorithm %q", parts[0])
	}
	n.computeIDs()
	return n, nil
}

func (n *Nym) String() string {
	if n == nil {
		return "<nil nym>"
	}
	return fmt.Sprintf("nym(%s %s)", n.alg, n.id)
}
