package contract

import (
	"strings"

	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
)

// CreateContract loads unsigned XML, adds signer as the contract nym when no
// signer is present yet, rebuilds the body, signs it, and reloads the
// contract from its own rendered text so the identifier reflects exactly
// what was serialized.
func (c *Contract) CreateContract(xml string, signer *keys.Nym) error {
	c.Release()
	if len(xml) < 3 {
		return fault.New(fault.KindPrecondition, "PURSE-CREATE-001", "contract text must be at least 3 bytes")
	}
	if signer == nil || !signer.HasPrivate() {
		return fault.New(fault.KindCrypto, "PURSE-CREATE-002", "signer needs a private key")
	}
	if !strings.HasSuffix(xml, "\n") {
		xml += "\n"
	}
	c.body = EscapeDashes(xml)
	if err := c.loadBody(); err != nil {
		c.Release()
		return err
	}

	if c.SignerNym() == nil {
		if err := c.InsertNym(RoleContract, signer); err != nil {
			c.Release()
			return err
		}
	}
	if err := c.SignContract(signer); err != nil {
		c.Release()
		return err
	}
	text := c.Render()
	return c.LoadFromString(text)
}
