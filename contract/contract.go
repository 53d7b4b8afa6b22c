// Package contract implements the signed container every purse document is
// serialized through: a bookended, multi-signature canonical text whose
// content identifier is the digest of the whole signed form.
//
// A document is built from a body (an XML element tree) and zero or more
// detached signatures:
//
//	-----BEGIN SIGNED PURSE-----
//	Hash: SHA256
//
//	<purse ... />
//	-----BEGIN PURSE SIGNATURE-----
//	Version: xdao-purse 1
//	Comment: xdao.co/purse
//	Meta:    SxYz
//
//	<base64 signature>
//	-----END PURSE SIGNATURE-----
//
// Document-specific elements are loaded and written by a Variant.
package contract

import (
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/purse/keys"
)

const (
	// DefaultProductVersion is written into each signature's Version header.
	DefaultProductVersion = "xdao-purse 1"
	// DefaultComment is written into each signature's Comment header.
	DefaultComment = "xdao.co/purse"

	// TypeContract is the type of a generic contract.
	TypeContract = "CONTRACT"
)

// Signature is one detached signature with its optional key metadata.
type Signature struct {
	Value string
	Meta  keys.Metadata
}

// Entity describes the party a contract speaks for.
type Entity struct {
	ShortName string
	LongName  string
	Email     string
}

func (e Entity) isZero() bool { return e == Entity{} }

// Variant supplies the document-specific part of a contract body.
type Variant interface {
	// UpdateContents renders the body from the variant's fields. It is called
	// before every signature.
	UpdateContents(c *Contract) (string, error)
	// HandleNode loads the element r is positioned on. Returning NodeUnknown
	// defers to the generic handler; an error aborts the whole load.
	HandleNode(c *Contract, r NodeReader) (Outcome, error)
	// Reset clears everything the variant loaded.
	Reset()
}

// Contract is a signed container. It is not safe for concurrent use.
type Contract struct {
	typ      string
	hashType string

	raw  string
	body string
	sigs []Signature
	id   cid.Cid

	name       string
	version    string
	entity     Entity
	conditions map[string]string
	nyms       map[string]*keys.Nym

	folder   string
	filename string

	variant        Variant
	provider       keys.Provider
	log            *zap.Logger
	productVersion string
	comment        string
}

// Option configures a Contract.
type Option func(*Contract)

// WithProvider sets the crypto provider. Default: keys.Default.
func WithProvider(p keys.Provider) Option {
	return func(c *Contract) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithLogger sets the logger for non-fatal load conditions.
func WithLogger(l *zap.Logger) Option {
	return func(c *Contract) {
		if l != nil {
			c.log = l
		}
	}
}

// WithVariant plugs document-specific handling into the contract.
func WithVariant(v Variant) Option { return func(c *Contract) { c.variant = v } }

// WithHashType sets the signing digest. Default: keys.DefaultHashType.
func WithHashType(h string) Option {
	return func(c *Contract) { c.hashType = keys.NormalizeHashType(h) }
}

// WithProductVersion sets the Version header written into signatures.
func WithProductVersion(v string) Option {
	return func(c *Contract) {
		if v != "" {
			c.productVersion = v
		}
	}
}

// WithComment sets the Comment header written into signatures.
func WithComment(s string) Option {
	return func(c *Contract) {
		if s != "" {
			c.comment = s
		}
	}
}

// New returns an empty contract of the given type (e.g. "PURSE").
func New(typ string, opts ...Option) *Contract {
	c := &Contract{
		typ:            typ,
		hashType:       keys.DefaultHashType,
		provider:       keys.Default,
		log:            zap.NewNop(),
		productVersion: DefaultProductVersion,
		comment:        DefaultComment,
		conditions:     map[string]string{},
		nyms:           map[string]*keys.Nym{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.typ == "" {
		c.typ = TypeContract
	}
	return c
}

func (c *Contract) Type() string            { return c.typ }
func (c *Contract) HashType() string        { return c.hashType }
func (c *Contract) Raw() string             { return c.raw }
func (c *Contract) Body() string            { return c.body }
func (c *Contract) Provider() keys.Provider { return c.provider }
func (c *Contract) Logger() *zap.Logger     { return c.log }
func (c *Contract) Name() string            { return c.name }
func (c *Contract) Version() string         { return c.version }
func (c *Contract) Entity() Entity          { return c.entity }
func (c *Contract) SetName(name string)     { c.name = name }
func (c *Contract) SetVersion(v string)     { c.version = v }
func (c *Contract) SetEntity(e Entity)      { c.entity = e }

// Location returns where the contract is stored.
func (c *Contract) Location() (folder, filename string) { return c.folder, c.filename }

// SetLocation records where the contract is stored.
func (c *Contract) SetLocation(folder, filename string) {
	c.folder, c.filename = folder, filename
}

// Signatures returns a copy of the signature list.
func (c *Contract) Signatures() []Signature {
	return append([]Signature(nil), c.sigs...)
}

// Condition returns a named condition.
func (c *Contract) Condition(name string) (string, bool) {
	v, ok := c.conditions[name]
	return v, ok
}

// SetCondition adds or replaces a named condition.
func (c *Contract) SetCondition(name, value string) { c.conditions[name] = value }

// Conditions returns a copy of all conditions.
func (c *Contract) Conditions() map[string]string {
	out := make(map[string]string, len(c.conditions))
	for k, v := range c.conditions {
		out[k] = v
	}
	return out
}

// Release drops everything loaded or signed, including variant state. The
// type, options and location survive.
func (c *Contract) Release() {
	c.raw = ""
	c.body = ""
	c.sigs = nil
	c.id = cid.Undef
	c.name = ""
	c.version = ""
	c.entity = Entity{}
	c.conditions = map[string]string{}
	c.nyms = map[string]*keys.Nym{}
	if c.variant != nil {
		c.variant.Reset()
	}
}

// ReleaseSignatures drops all signatures.
func (c *Contract) ReleaseSignatures() { c.sigs = nil }
