package contract

import (
	"sort"

	"xdao.co/purse/armor"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
)

// Nym roles recognised by SignerNym.
const (
	RoleContract = "contract"
	RoleSigner   = "signer"
)

// InsertNym stores the public half of nym under role, replacing any previous
// nym for that role.
func (c *Contract) InsertNym(role string, nym *keys.Nym) error {
	if role == "" {
		return fault.New(fault.KindPrecondition, "PURSE-NYM-001", "nym role is empty")
	}
	if nym == nil {
		return fault.New(fault.KindPrecondition, "PURSE-NYM-002", "nym is nil")
	}
	c.nyms[role] = nym.Public()
	return nil
}

// InsertNymText parses an armored public nym and stores it under role.
func (c *Contract) InsertNymText(role, armored string) error {
	nym, err := decodeNym(armored)
	if err != nil {
		return err
	}
	return c.InsertNym(role, nym)
}

// Nym returns the nym stored under role.
func (c *Contract) Nym(role string) *keys.Nym { return c.nyms[role] }

// SignerNym returns the nym that signs this contract: role "contract", or
// failing that role "signer".
func (c *Contract) SignerNym() *keys.Nym {
	if n := c.nyms[RoleContract]; n != nil {
		return n
	}
	return c.nyms[RoleSigner]
}

func decodeNym(armored string) (*keys.Nym, error) {
	raw, err := armor.DecodeField(armored)
	if err != nil {
		return nil, err
	}
	nym, err := keys.ParsePublicNym(string(raw))
	if err != nil {
		return nil, fault.Wrap(fault.KindDecode, "PURSE-NYM-010", "invalid public nym", err)
	}
	return nym, nil
}

// WriteInnerContents appends the entity, conditions and nyms to parent in a
// stable order. Variants call it from UpdateContents.
func (c *Contract) WriteInnerContents(parent *Tag) {
	if !c.entity.isZero() {
		parent.Add(NewTag("entity").
			Attr("shortname", c.entity.ShortName).
			Attr("longname", c.entity.LongName).
			Attr("email", c.entity.Email))
	}

	names := make([]string, 0, len(c.conditions))
	for k := range c.conditions {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parent.Add(NewTextTag("condition", c.conditions[k]).Attr("name", k))
	}

	roles := make([]string, 0, len(c.nyms))
	for r := range c.nyms {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	for _, r := range roles {
		nym := c.nyms[r]
		text := armor.EncodeField([]byte(nym.MarshalPublic()))
		if r == RoleSigner {
			parent.Add(NewTextTag("signer", text).Attr("nymID", nym.ID()))
			continue
		}
		parent.Add(NewTextTag("key", text).Attr("name", r))
	}
}

// handleNode loads the elements every contract understands.
func (c *Contract) handleNode(r NodeReader) (Outcome, error) {
	switch r.Name() {
	case "contract":
		c.name = r.Attr("name")
		c.version = r.Attr("version")
		return NodeHandled, nil

	case "entity":
		c.entity = Entity{
			ShortName: r.Attr("shortname"),
			LongName:  r.Attr("longname"),
			Email:     r.Attr("email"),
		}
		return NodeHandled, nil

	case "condition":
		name := r.Attr("name")
		if name == "" {
			return NodeUnknown, fault.New(fault.KindParse, "PURSE-BASE-001", "condition without a name")
		}
		text, err := OptionalElementText(r)
		if err != nil {
			return NodeUnknown, err
		}
		c.conditions[name] = text
		return NodeHandled, nil

	case "key":
		role := r.Attr("name")
		if role == "" {
			return NodeUnknown, fault.New(fault.KindParse, "PURSE-BASE-010", "key without a name")
		}
		text, err := ElementText(r)
		if err != nil {
			return NodeUnknown, err
		}
		nym, err := decodeNym(text)
		if err != nil {
			return NodeUnknown, err
		}
		c.nyms[role] = nym
		return NodeHandled, nil

	case "signer":
		claimed := r.Attr("nymID")
		text, err := ElementText(r)
		if err != nil {
			return NodeUnknown, err
		}
		nym, err := decodeNym(text)
		if err != nil {
			return NodeUnknown, err
		}
		if claimed != "" && claimed != nym.ID() {
			return NodeUnknown, fault.Newf(fault.KindParse, "PURSE-BASE-020", "signer nym %s does not match nymID %s", nym.ID(), claimed)
		}
		c.nyms[RoleSigner] = nym
		return NodeHandled, nil
	}
	return NodeUnknown, nil
}
