// Package token implements the cash tokens held in purses.
//
// A cash token is a signed contract of type "CASH TOKEN":
//
//	<token version="1.0" notaryID="..." instrumentDefinitionID="..."
//	 denomination="100" series="0" validFrom="..." validTo="..." spendableID="...">
//	<spendable>armored envelope sealed to the owner</spendable>
//	</token>
//
// The spendable is the secret that makes a token redeemable. Its identifier
// is public, so duplicate tokens can be detected without opening them.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"xdao.co/purse/armor"
	"xdao.co/purse/contract"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/owner"
)

// Type is the contract type of a cash token.
const Type = "CASH TOKEN"

// Bookend is the first line of every serialized cash token.
const Bookend = "-----BEGIN SIGNED " + Type + "-----"

const (
	version       = "1.0"
	spendableSize = 32
)

// Token is a unit of cash as seen by a purse.
type Token interface {
	NotaryID() string
	InstrumentDefinitionID() string
	Denomination() int64
	Series() int
	// ValidFrom and ValidTo are seconds since the epoch; zero is unbounded.
	ValidFrom() int64
	ValidTo() int64
	// SpendableID identifies the token without opening it.
	SpendableID() string
	// Spendable opens the spendable secret with the token's owner.
	Spendable(ctx context.Context, o owner.Key) (string, error)
	// ReassignOwnership reseals the spendable from oldOwner to newOwner. The
	// token must be signed again before its Text reflects the change.
	ReassignOwnership(ctx context.Context, oldOwner, newOwner owner.Key) error
	// Sign replaces all signatures with one by nym and refreshes Text.
	Sign(nym *keys.Nym) error
	ReleaseSignatures()
	// Text is the canonical signed form. It is empty until the token is signed.
	Text() string
}

// Params describes a token to mint.
type Params struct {
	NotaryID               string
	InstrumentDefinitionID string
	Denomination           int64
	Series                 int
	ValidFrom              int64
	ValidTo                int64
	// Spendable is the secret to seal. A random one is generated when empty.
	Spendable []byte
}

// Cash is the signed-contract implementation of Token.
type Cash struct {
	*contract.Contract

	notaryID     string
	instrumentID string
	denomination int64
	series       int
	validFrom    int64
	validTo      int64
	spendableID  string
	sealed       []byte
}

var _ Token = (*Cash)(nil)

func newCash(opts ...contract.Option) *Cash {
	c := &Cash{}
	c.Contract = contract.New(Type, append(opts, contract.WithVariant(c))...)
	return c
}

// New mints an unsigned token whose spendable is sealed to o.
func New(ctx context.Context, p Params, o owner.Key, opts ...contract.Option) (*Cash, error) {
	if p.NotaryID == "" || p.InstrumentDefinitionID == "" {
		return nil, fault.New(fault.KindPrecondition, "PURSE-TOKEN-001", "token needs notary and instrument definition IDs")
	}
	if p.Denomination <= 0 {
		return nil, fault.Newf(fault.KindPrecondition, "PURSE-TOKEN-002", "invalid denomination %d", p.Denomination)
	}
	if o == nil {
		return nil, fault.New(fault.KindPrecondition, "PURSE-TOKEN-003", "token needs an owner")
	}

	spendable := p.Spendable
	if len(spendable) == 0 {
		raw := make([]byte, spendableSize)
		if _, err := rand.Read(raw); err != nil {
			return nil, fault.Wrap(fault.KindCrypto, "PURSE-TOKEN-004", "generate spendable", err)
		}
		spendable = []byte(base58.Encode(raw))
	}
	sealed, err := o.Seal(ctx, spendable, "Sealing a new cash token")
	if err != nil {
		return nil, err
	}

	c := newCash(opts...)
	c.notaryID = p.NotaryID
	c.instrumentID = p.InstrumentDefinitionID
	c.denomination = p.Denomination
	c.series = p.Series
	c.validFrom = p.ValidFrom
	c.validTo = p.ValidTo
	c.spendableID = spendableID(spendable)
	c.sealed = sealed
	return c, nil
}

// Factory loads a token from its canonical text, which may be armored.
func Factory(text string, opts ...contract.Option) (Token, error) {
	_, first, err := armor.DearmorAndTrim(text)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(first, Bookend) {
		return nil, fault.Newf(fault.KindParse, "PURSE-TOKEN-010", "not a cash token: %q", first)
	}
	c := newCash(opts...)
	if err := c.LoadFromString(text); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

func spendableID(spendable []byte) string {
	sum := sha256.Sum256(spendable)
	return base58.Encode(sum[:])
}

func (c *Cash) validate() error {
	switch {
	case c.notaryID == "", c.instrumentID == "":
		return fault.New(fault.KindParse, "PURSE-TOKEN-011", "token is missing its notary or instrument definition ID")
	case c.spendableID == "", len(c.sealed) == 0:
		return fault.New(fault.KindParse, "PURSE-TOKEN-012", "token is missing its spendable")
	case c.denomination <= 0:
		return fault.Newf(fault.KindParse, "PURSE-TOKEN-013", "invalid denomination %d", c.denomination)
	}
	return nil
}

func (c *Cash) NotaryID() string               { return c.notaryID }
func (c *Cash) InstrumentDefinitionID() string { return c.instrumentID }
func (c *Cash) Denomination() int64            { return c.denomination }
func (c *Cash) Series() int                    { return c.series }
func (c *Cash) ValidFrom() int64               { return c.validFrom }
func (c *Cash) ValidTo() int64                 { return c.validTo }
func (c *Cash) SpendableID() string            { return c.spendableID }
func (c *Cash) Text() string                   { return c.Raw() }

func (c *Cash) Spendable(ctx context.Context, o owner.Key) (string, error) {
	plain, err := o.Open(ctx, c.sealed, "Opening a cash token")
	if err != nil {
		return "", err
	}
	if spendableID(plain) != c.spendableID {
		return "", fault.New(fault.KindOwnership, "PURSE-TOKEN-020", "spendable does not match its identifier")
	}
	return string(plain), nil
}

func (c *Cash) ReassignOwnership(ctx context.Context, oldOwner, newOwner owner.Key) error {
	if oldOwner == nil || newOwner == nil {
		return fault.New(fault.KindPrecondition, "PURSE-TOKEN-030", "reassignment needs both owners")
	}
	if oldOwner.Equal(newOwner) {
		return nil
	}
	plain, err := c.Spendable(ctx, oldOwner)
	if err != nil {
		return err
	}
	sealed, err := newOwner.Seal(ctx, []byte(plain), "Reassigning a cash token")
	if err != nil {
		return err
	}
	c.sealed = sealed
	return nil
}

func (c *Cash) Sign(nym *keys.Nym) error {
	c.ReleaseSignatures()
	if err := c.SignContract(nym); err != nil {
		return err
	}
	return c.SaveContract()
}

// UpdateContents renders the token element.
func (c *Cash) UpdateContents(*contract.Contract) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	t := contract.NewTag("token").
		Attr("version", version).
		Attr("notaryID", c.notaryID).
		Attr("instrumentDefinitionID", c.instrumentID).
		Attr("denomination", strconv.FormatInt(c.denomination, 10)).
		Attr("series", strconv.Itoa(c.series)).
		Attr("validFrom", strconv.FormatInt(c.validFrom, 10)).
		Attr("validTo", strconv.FormatInt(c.validTo, 10)).
		Attr("spendableID", c.spendableID)
	t.AddText("spendable", armor.EncodeField(c.sealed))
	return t.String(), nil
}

// HandleNode loads the token and spendable elements.
func (c *Cash) HandleNode(_ *contract.Contract, r contract.NodeReader) (contract.Outcome, error) {
	switch r.Name() {
	case "token":
		var err error
		c.notaryID = r.Attr("notaryID")
		c.instrumentID = r.Attr("instrumentDefinitionID")
		c.spendableID = r.Attr("spendableID")
		if c.denomination, err = parseInt(r, "denomination"); err != nil {
			return contract.NodeUnknown, err
		}
		series, err := parseInt(r, "series")
		if err != nil {
			return contract.NodeUnknown, err
		}
		c.series = int(series)
		if c.validFrom, err = parseInt(r, "validFrom"); err != nil {
			return contract.NodeUnknown, err
		}
		if c.validTo, err = parseInt(r, "validTo"); err != nil {
			return contract.NodeUnknown, err
		}
		return contract.NodeHandled, nil

	case "spendable":
		text, err := contract.ElementText(r)
		if err != nil {
			return contract.NodeUnknown, err
		}
		sealed, err := armor.DecodeField(text)
		if err != nil {
			return contract.NodeUnknown, err
		}
		c.sealed = sealed
		return contract.NodeHandled, nil
	}
	return contract.NodeUnknown, nil
}

func (c *Cash) Reset() {
	c.notaryID = ""
	c.instrumentID = ""
	c.denomination = 0
	c.series = 0
	c.validFrom = 0
	c.validTo = 0
	c.spendableID = ""
	c.sealed = nil
}

// parseInt reads a decimal attribute. A missing attribute reads as zero.
func parseInt(r contract.NodeReader, name string) (int64, error) {
	s := r.Attr(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fault.Wrap(fault.KindParse, "PURSE-TOKEN-014", "invalid "+name+" attribute", err)
	}
	return v, nil
}
