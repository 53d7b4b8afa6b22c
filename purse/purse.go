// Package purse implements the cash purse: a signed contract holding a stack
// of token envelopes, each sealed to the purse's owner, together with the
// running value and validity window of the tokens inside.
//
// A purse is owned either by a nym or, once GenerateInternalKey has run, by
// an internal symmetric key whose passphrase is kept by a cached master key.
//
// A Purse is not safe for concurrent use. Callers that share one must
// serialize every call.
package purse

import (
	"context"
	"time"

	"go.uber.org/zap"

	"xdao.co/purse/contract"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/masterkey"
	"xdao.co/purse/owner"
)

// Type is the contract type of a purse.
const Type = "PURSE"

// Bookend is the first line of every serialized purse.
const Bookend = "-----BEGIN SIGNED " + Type + "-----"

const version = "1.0"

// Folder is the top-level storage folder purses are saved under.
const Folder = "purse"

// Purse is a container of sealed cash tokens scoped to one notary and one
// instrument definition.
type Purse struct {
	*contract.Contract

	version      string
	notaryID     string
	instrumentID string
	nymID        string

	isNymIDIncluded     bool
	isPasswordProtected bool

	totalValue      int64
	latestValidFrom int64
	earliestValidTo int64

	// tokens[0] is the front: the most recently pushed envelope.
	tokens [][]byte

	internalKey *keys.SymmetricKey
	master      *masterkey.CachedKey

	source        masterkey.PassphraseSource
	registry      *masterkey.Registry
	kdf           keys.KDFParams
	masterTimeout time.Duration
	now           func() time.Time
	log           *zap.Logger
	contractOpts  []contract.Option
}

// Option configures a Purse.
type Option func(*Purse)

// WithLogger sets the logger for the purse and the contracts it loads.
func WithLogger(l *zap.Logger) Option {
	return func(p *Purse) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Purse) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRegistry sets the registry master keys are shared through.
// Default: masterkey.DefaultRegistry.
func WithRegistry(r *masterkey.Registry) Option {
	return func(p *Purse) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithPassphraseSource sets where the master passphrase is asked for once
// the cached master password has expired.
func WithPassphraseSource(src masterkey.PassphraseSource) Option {
	return func(p *Purse) { p.source = src }
}

// WithKDF sets the passphrase KDF cost for keys made by GenerateInternalKey.
func WithKDF(k keys.KDFParams) Option { return func(p *Purse) { p.kdf = k } }

// WithMasterKeyTimeout sets how long the master password stays cached.
func WithMasterKeyTimeout(d time.Duration) Option {
	return func(p *Purse) { p.masterTimeout = d }
}

// WithContractOptions passes options to the purse contract and to every
// token contract the purse loads.
func WithContractOptions(opts ...contract.Option) Option {
	return func(p *Purse) { p.contractOpts = append(p.contractOpts, opts...) }
}

func newPurse(opts ...Option) *Purse {
	p := &Purse{
		version:       version,
		registry:      masterkey.DefaultRegistry,
		kdf:           keys.DefaultKDF,
		masterTimeout: masterkey.DefaultTimeout,
		now:           time.Now,
		log:           zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	copts := append(append([]contract.Option(nil), p.contractOpts...), contract.WithLogger(p.log))
	p.contractOpts = copts
	p.Contract = contract.New(Type, append(copts, contract.WithVariant(p))...)
	return p
}

// New returns an empty purse for notaryID and instrumentID.
func New(notaryID, instrumentID string, opts ...Option) *Purse {
	p := newPurse(opts...)
	p.notaryID = notaryID
	p.instrumentID = instrumentID
	return p
}

// NewForNym returns an empty purse that records nymID as its owner.
func NewForNym(notaryID, nymID, instrumentID string, opts ...Option) *Purse {
	p := New(notaryID, instrumentID, opts...)
	p.nymID = nymID
	p.isNymIDIncluded = true
	return p
}

// NotaryID returns the notary every token in the purse is issued by.
func (p *Purse) NotaryID() string { return p.notaryID }

// InstrumentDefinitionID returns the instrument every token denominates.
func (p *Purse) InstrumentDefinitionID() string { return p.instrumentID }

// Count returns the number of tokens held.
func (p *Purse) Count() int { return len(p.tokens) }

// IsEmpty reports whether the purse holds no tokens.
func (p *Purse) IsEmpty() bool { return len(p.tokens) == 0 }

// TotalValue returns the sum of the held tokens' denominations.
func (p *Purse) TotalValue() int64 { return p.totalValue }

// LatestValidFrom returns the latest validFrom seen since the window was
// last recalculated. Zero means no lower bound.
func (p *Purse) LatestValidFrom() int64 { return p.latestValidFrom }

// EarliestValidTo returns the earliest validTo seen since the window was
// last recalculated. Zero means no upper bound.
func (p *Purse) EarliestValidTo() int64 { return p.earliestValidTo }

// IsPasswordProtected reports whether tokens are sealed to the internal key.
func (p *Purse) IsPasswordProtected() bool { return p.isPasswordProtected }

// NymID returns the owner nym ID and whether the purse records one.
func (p *Purse) NymID() (string, bool) { return p.nymID, p.isNymIDIncluded }

// InternalKey returns the symmetric key of a password-protected purse.
func (p *Purse) InternalKey() *keys.SymmetricKey { return p.internalKey }

// InternalMaster returns the cached master key of a password-protected purse.
func (p *Purse) InternalMaster() *masterkey.CachedKey { return p.master }

// SetPassphraseSource changes where the master passphrase is asked for.
func (p *Purse) SetPassphraseSource(src masterkey.PassphraseSource) { p.source = src }

// Passphrase returns the master password that unlocks the internal key,
// asking the passphrase source only when the cached copy has expired.
func (p *Purse) Passphrase(ctx context.Context, prompt string) ([]byte, error) {
	if !p.isPasswordProtected || p.master == nil {
		return nil, fault.New(fault.KindPrecondition, "PURSE-PURSE-030", "purse is not password protected")
	}
	return p.master.MasterPassword(ctx, p.source, prompt)
}

// OwnerKey returns the owner that opens the tokens of a password-protected
// purse.
func (p *Purse) OwnerKey() (owner.Key, error) {
	if !p.isPasswordProtected || p.internalKey == nil || p.master == nil {
		return nil, fault.New(fault.KindPrecondition, "PURSE-PURSE-031", "purse has no internal key")
	}
	return owner.Passphrase{
		Key:      p.internalKey,
		Master:   p.master,
		Source:   p.source,
		Provider: p.Provider(),
	}, nil
}

// ReleaseTokens drops every token envelope along with the value and window
// they accounted for.
func (p *Purse) ReleaseTokens() {
	p.tokens = nil
	p.totalValue = 0
	p.latestValidFrom = 0
	p.earliestValidTo = 0
}

// Reset clears everything loaded into the purse. It is called by the
// contract before each load.
func (p *Purse) Reset() {
	p.ReleaseTokens()
	p.version = version
	p.nymID = ""
	p.isNymIDIncluded = false
	p.isPasswordProtected = false
	p.internalKey = nil
	p.releaseMaster()
}

func (p *Purse) releaseMaster() {
	if p.master == nil {
		return
	}
	if id := p.master.ID(); id != "" {
		p.registry.Release(id)
	}
	p.master = nil
}
