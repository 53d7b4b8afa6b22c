// Package owner implements the two kinds of purse owner behind one seal/open
// surface: an identity (nym) or a passphrase-protected symmetric key.
package owner

import (
	"context"

	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/masterkey"
)

// Key is the owner of sealed token data. Exactly two implementations exist:
// Identity and Passphrase.
type Key interface {
	// Seal encrypts plaintext so that only this owner can open it.
	Seal(ctx context.Context, plaintext []byte, prompt string) ([]byte, error)
	// Open decrypts an envelope produced by Seal. A failure is always
	// fault.KindOwnership; callers must not treat the result as data.
	Open(ctx context.Context, envelope []byte, prompt string) ([]byte, error)
	// ID names the underlying key (nym ID or symmetric key ID).
	ID() string
	// Equal reports whether other denotes the same effective key.
	Equal(other Key) bool

	isOwner()
}

// Identity is an owner backed by a nym. Sealing needs only the public half;
// opening needs the private box key.
type Identity struct {
	Nym      *keys.Nym
	Provider keys.Provider
}

// NewIdentity returns an Identity owner using the default provider.
func NewIdentity(n *keys.Nym) Identity { return Identity{Nym: n, Provider: keys.Default} }

func (Identity) isOwner() {}

func (o Identity) provider() keys.Provider {
	if o.Provider == nil {
		return keys.Default
	}
	return o.Provider
}

func (o Identity) ID() string {
	if o.Nym == nil {
		return ""
	}
	return o.Nym.ID()
}

func (o Identity) Equal(other Key) bool {
	oi, ok := other.(Identity)
	return ok && o.Nym != nil && o.Nym.Equal(oi.Nym)
}

func (o Identity) Seal(ctx context.Context, plaintext []byte, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Nym == nil {
		return nil, fault.New(fault.KindOwnership, "PURSE-OWN-010", "identity owner has no nym")
	}
	out, err := o.provider().Seal(o.Nym, plaintext)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-OWN-011", "seal to identity", err)
	}
	return out, nil
}

func (o Identity) Open(ctx context.Context, envelope []byte, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !o.Nym.HasPrivate() {
		return nil, fault.New(fault.KindOwnership, "PURSE-OWN-012", "identity owner has no private key")
	}
	out, err := o.provider().Open(o.Nym, envelope)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-OWN-013", "open identity envelope", err)
	}
	return out, nil
}

// Passphrase is an owner backed by a symmetric key whose passphrase is the
// master password held by a cached master key.
type Passphrase struct {
	Key      *keys.SymmetricKey
	Master   *masterkey.CachedKey
	Source   masterkey.PassphraseSource
	Provider keys.Provider
}

func (Passphrase) isOwner() {}

func (o Passphrase) provider() keys.Provider {
	if o.Provider == nil {
		return keys.Default
	}
	return o.Provider
}

func (o Passphrase) ID() string {
	if o.Key == nil {
		return ""
	}
	return o.Key.ID()
}

func (o Passphrase) Equal(other Key) bool {
	op, ok := other.(Passphrase)
	return ok && o.Key != nil && op.Key != nil && o.Key.ID() == op.Key.ID()
}

func (o Passphrase) password(ctx context.Context, prompt string) ([]byte, error) {
	if o.Key == nil || o.Master == nil {
		return nil, fault.New(fault.KindOwnership, "PURSE-OWN-020", "passphrase owner is missing its keys")
	}
	pw, err := o.Master.MasterPassword(ctx, o.Source, prompt)
	if err != nil {
		if fault.IsKind(err, fault.KindPrecondition) {
			return nil, err
		}
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-OWN-021", "unlock master password", err)
	}
	return pw, nil
}

func (o Passphrase) Seal(ctx context.Context, plaintext []byte, prompt string) ([]byte, error) {
	pw, err := o.password(ctx, prompt)
	if err != nil {
		return nil, err
	}
	out, err := o.provider().SymmetricEncrypt(o.Key, pw, plaintext)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-OWN-022", "symmetric seal", err)
	}
	return out, nil
}

func (o Passphrase) Open(ctx context.Context, envelope []byte, prompt string) ([]byte, error) {
	pw, err := o.password(ctx, prompt)
	if err != nil {
		return nil, err
	}
	out, err := o.provider().SymmetricDecrypt(o.Key, pw, envelope)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-OWN-023", "symmetric open", err)
	}
	return out, nil
}

var (
	_ Key = Identity{}
	_ Key = Passphrase{}
)
