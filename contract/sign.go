package contract

import (
	"strings"

	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
)

// SignContract refreshes the body, signs it with nym and appends the
// signature. Call SaveContract afterwards to refresh the raw text.
func (c *Contract) SignContract(nym *keys.Nym) error {
	if err := c.UpdateContents(); err != nil {
		return err
	}
	return c.SignWith(nym)
}

// SignWith signs the current body without refreshing it.
func (c *Contract) SignWith(nym *keys.Nym) error {
	sig, err := signBody(c.provider, c.body, nym, c.hashType)
	if err != nil {
		return err
	}
	c.sigs = append(c.sigs, sig)
	return nil
}

func signBody(p keys.Provider, body string, nym *keys.Nym, hashType string) (Signature, error) {
	if nym == nil {
		return Signature{}, fault.New(fault.KindCrypto, "PURSE-SIGN-001", "no signer")
	}
	if strings.TrimSpace(body) == "" {
		return Signature{}, fault.New(fault.KindPrecondition, "PURSE-SIGN-002", "nothing to sign")
	}
	value, err := p.Sign([]byte(strings.TrimSpace(body)), nym, hashType)
	if err != nil {
		return Signature{}, fault.Wrap(fault.KindCrypto, "PURSE-SIGN-003", "sign contract", err)
	}
	if !strings.HasSuffix(value, "\n") {
		value += "\n"
	}
	return Signature{Value: value, Meta: nym.Metadata()}, nil
}

// Verify reports whether any signature on the contract was made by nym.
func (c *Contract) Verify(nym *keys.Nym) bool {
	return c.VerifyWithCandidates([]*keys.Nym{nym})
}

// VerifyWithCandidates reports whether any signature verifies under any
// candidate. A candidate whose metadata contradicts a signature's metadata
// is skipped without calling the provider.
func (c *Contract) VerifyWithCandidates(candidates []*keys.Nym) bool {
	msg := []byte(strings.TrimSpace(c.body))
	for _, s := range c.sigs {
		for _, nym := range candidates {
			if nym == nil {
				continue
			}
			if km := nym.Metadata(); km.HasMetadata() && s.Meta.HasMetadata() && km != s.Meta {
				continue
			}
			if c.provider.Verify(msg, nym, s.Value, c.hashType) {
				return true
			}
		}
	}
	return false
}

// VerifySignature verifies the contract against its own signer nym.
func (c *Contract) VerifySignature() error {
	signer := c.SignerNym()
	if signer == nil {
		return fault.New(fault.KindCrypto, "PURSE-SIGN-010", "contract carries no signer nym")
	}
	if !c.Verify(signer) {
		return fault.New(fault.KindCrypto, "PURSE-SIGN-011", "signature does not verify against the signer nym")
	}
	return nil
}

// SignFlatText signs arbitrary text with nym and returns it as a bookended
// document of type typ, using the default hash, version and comment.
func SignFlatText(text, typ string, nym *keys.Nym) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) < 3 {
		return "", fault.New(fault.KindPrecondition, "PURSE-SIGN-020", "flat text must be at least 3 bytes")
	}
	body := EscapeDashes(text + "\n")
	sig, err := signBody(keys.Default, body, nym, keys.DefaultHashType)
	if err != nil {
		return "", err
	}
	return AddBookends(typ, keys.DefaultHashType, body, []Signature{sig}, DefaultProductVersion, DefaultComment), nil
}
