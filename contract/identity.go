package contract

import (
	"github.com/ipfs/go-cid"

	"xdao.co/purse/cidutil"
	"xdao.co/purse/fault"
)

// CalculateID recomputes the identifier from the raw text.
func (c *Contract) CalculateID() error {
	if c.raw == "" {
		c.id = cid.Undef
		return fault.New(fault.KindPrecondition, "PURSE-ID-001", "contract has no raw text")
	}
	id, err := cidutil.Sum(c.hashType, []byte(c.raw))
	if err != nil {
		return fault.Wrap(fault.KindIdentifier, "PURSE-ID-002", "compute contract identifier", err)
	}
	c.id = id
	return nil
}

// ID returns the identifier computed at the last load or save.
func (c *Contract) ID() cid.Cid { return c.id }

// VerifyID checks that the raw text hashes to claimed.
func (c *Contract) VerifyID(claimed cid.Cid) error {
	if !claimed.Defined() {
		return fault.New(fault.KindIdentifier, "PURSE-ID-010", "no identifier to verify against")
	}
	if c.raw == "" || !cidutil.Matches(claimed, []byte(c.raw)) {
		return fault.Newf(fault.KindIdentifier, "PURSE-ID-011", "contract does not hash to %s", claimed)
	}
	return nil
}

// VerifyContract checks the identifier and the signer's signature.
func (c *Contract) VerifyContract(claimed cid.Cid) error {
	if err := c.VerifyID(claimed); err != nil {
		return err
	}
	return c.VerifySignature()
}
