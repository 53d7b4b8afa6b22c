package contract

import (
	"context"

	"github.com/ipfs/go-cid"

	"xdao.co/purse/armor"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/storage"
)

// Store writes the armored raw text to folder/file and records the location.
func (c *Contract) Store(ctx context.Context, s storage.Store, folder, file string) error {
	if c.raw == "" {
		return fault.New(fault.KindPrecondition, "PURSE-STORE-001", "contract has not been saved")
	}
	if err := s.Write(ctx, []byte(armor.Encode(c.typ, []byte(c.raw))), folder, file); err != nil {
		return fault.Wrap(fault.KindStorage, "PURSE-STORE-002", "write contract "+folder+"/"+file, err)
	}
	c.SetLocation(folder, file)
	return nil
}

// Load reads folder/file, armored or not, and loads it.
func (c *Contract) Load(ctx context.Context, s storage.Store, folder, file string) error {
	b, err := s.Read(ctx, folder, file)
	if err != nil {
		return fault.Wrap(fault.KindStorage, "PURSE-STORE-010", "read contract "+folder+"/"+file, err)
	}
	if err := c.LoadFromString(string(b)); err != nil {
		return err
	}
	c.SetLocation(folder, file)
	return nil
}

// Archive puts the raw text into cas under the contract's own identifier.
// Contracts hashed with anything but SHA256 need a ContentStore.
func (c *Contract) Archive(ctx context.Context, cas storage.CAS) (cid.Cid, error) {
	if c.raw == "" || !c.id.Defined() {
		return cid.Undef, fault.New(fault.KindPrecondition, "PURSE-STORE-020", "contract has not been saved")
	}
	data := []byte(c.raw)

	if c.hashType != keys.SHA256 {
		cs, ok := cas.(storage.ContentStore)
		if !ok {
			return cid.Undef, fault.Newf(fault.KindStorage, "PURSE-STORE-021", "content store cannot address %s contracts", c.hashType)
		}
		if err := cs.PutAs(ctx, c.id, data); err != nil {
			return cid.Undef, fault.Wrap(fault.KindStorage, "PURSE-STORE-022", "archive contract", err)
		}
		return c.id, nil
	}

	id, err := cas.Put(ctx, data)
	if err != nil {
		return cid.Undef, fault.Wrap(fault.KindStorage, "PURSE-STORE-022", "archive contract", err)
	}
	if !id.Equals(c.id) {
		return cid.Undef, fault.Newf(fault.KindIdentifier, "PURSE-STORE-023", "store addressed contract as %s, want %s", id, c.id)
	}
	return id, nil
}

// Fetch loads the contract stored in cas under id and verifies that it
// hashes to id.
func (c *Contract) Fetch(ctx context.Context, cas storage.CAS, id cid.Cid) error {
	b, err := cas.Get(ctx, id)
	if err != nil {
		return fault.Wrap(fault.KindStorage, "PURSE-STORE-030", "fetch contract "+id.String(), err)
	}
	if err := c.LoadFromString(string(b)); err != nil {
		return err
	}
	if err := c.VerifyID(id); err != nil {
		c.Release()
		return err
	}
	return nil
}
