package purse

import (
	"context"
	"crypto/rand"

	"go.uber.org/zap"

	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/masterkey"
)

// GenerateInternalKey turns an empty, unprotected purse into a
// password-protected one: src is asked for a new master passphrase, a cached
// master key is made from it, and an internal symmetric key is made under
// the master password. Any owner nym ID is dropped.
//
// It refuses, returning false and leaving the purse as it was, when the
// purse holds tokens or already has keys; tokens are never resealed.
func (p *Purse) GenerateInternalKey(ctx context.Context, src masterkey.PassphraseSource) (bool, error) {
	switch {
	case p.isPasswordProtected:
		return false, fault.New(fault.KindPrecondition, "PURSE-KEY-001", "purse is already password protected")
	case p.internalKey != nil || p.master != nil:
		return false, fault.New(fault.KindPrecondition, "PURSE-KEY-002", "purse already has an internal key")
	case !p.IsEmpty():
		return false, fault.Newf(fault.KindPrecondition, "PURSE-KEY-003", "purse holds %d tokens", p.Count())
	case src == nil:
		return false, fault.New(fault.KindPrecondition, "PURSE-KEY-004", "no passphrase source")
	}

	master := masterkey.New(
		masterkey.WithTimeout(p.masterTimeout),
		masterkey.WithKDF(p.kdf),
		masterkey.WithLogger(p.log))
	if err := master.Generate(ctx, src); err != nil {
		return false, err
	}
	password, err := master.MasterPassword(ctx, src, "Unlock the new purse key")
	if err != nil {
		return false, err
	}
	key, err := keys.NewSymmetricKeyWithParams(rand.Reader, password, p.kdf)
	if err != nil {
		return false, err
	}

	p.master = p.registry.Acquire(master)
	p.internalKey = key
	p.source = src
	p.isPasswordProtected = true
	p.isNymIDIncluded = false
	p.nymID = ""
	p.log.Debug("purse is now password protected", zap.String("key", key.ID()))
	return true, nil
}
