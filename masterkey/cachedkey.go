// Package masterkey implements the cached master key: a passphrase-protected
// secret whose unlocked form is kept for a bounded time so the user is not
// asked for the passphrase on every operation.
package masterkey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"xdao.co/purse/armor"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
)

// DefaultTimeout is how long an unlocked master password stays cached.
const DefaultTimeout = 5 * time.Minute

const (
	passwordSize = 32
	cacheEntry   = "master"
)

// CachedKey holds a random master password sealed under a key derived from
// the user's passphrase, plus a timeout-bound cache of the unsealed password.
//
// A timeout below zero caches forever; a timeout of zero disables caching.
// A CachedKey may be shared by several purses (see Registry); changing its
// timeout or resetting it affects every holder.
type CachedKey struct {
	mu      sync.Mutex
	key     *keys.SymmetricKey
	sealed  []byte
	timeout time.Duration
	kdf     keys.KDFParams
	rand    io.Reader
	cache   *cache.Cache
	log     *zap.Logger
}

// Option configures a CachedKey.
type Option func(*CachedKey)

// WithTimeout sets the cache timeout.
func WithTimeout(d time.Duration) Option { return func(c *CachedKey) { c.timeout = d } }

// WithLogger sets the logger used for prompt and expiry events.
func WithLogger(l *zap.Logger) Option {
	return func(c *CachedKey) {
		if l != nil {
			c.log = l
		}
	}
}

// WithKDF sets the passphrase KDF cost used by Generate.
func WithKDF(p keys.KDFParams) Option { return func(c *CachedKey) { c.kdf = p } }

// WithRand sets the randomness source used by Generate.
func WithRand(r io.Reader) Option { return func(c *CachedKey) { c.rand = r } }

// New returns an empty, not yet generated CachedKey.
func New(opts ...Option) *CachedKey {
	c := &CachedKey{
		timeout: DefaultTimeout,
		kdf:     keys.DefaultKDF,
		rand:    rand.Reader,
		cache:   cache.New(cache.NoExpiration, 0),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsGenerated reports whether the key holds a sealed master password.
func (c *CachedKey) IsGenerated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key != nil && len(c.sealed) > 0
}

// ID identifies the master key. It is empty before generation.
func (c *CachedKey) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return ""
	}
	return c.key.ID()
}

// Generate asks src for a new passphrase and creates a fresh master password
// sealed under it. The new password is cached immediately.
func (c *CachedKey) Generate(ctx context.Context, src PassphraseSource) error {
	if src == nil {
		return fault.New(fault.KindPrecondition, "PURSE-MK-001", "missing passphrase source")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != nil {
		return fault.New(fault.KindPrecondition, "PURSE-MK-002", "master key already generated")
	}

	pass, err := src.Passphrase(ctx, "Choose a master passphrase", true)
	if err != nil {
		return fault.Wrap(fault.KindOwnership, "PURSE-MK-003", "obtain new master passphrase", err)
	}
	key, err := keys.NewSymmetricKeyWithParams(c.rand, pass, c.kdf)
	if err != nil {
		return err
	}
	password := make([]byte, passwordSize)
	if _, err := io.ReadFull(c.rand, password); err != nil {
		return fault.Wrap(fault.KindCrypto, "PURSE-MK-004", "generate master password", err)
	}
	sealed, err := key.Encrypt(pass, password)
	if err != nil {
		return err
	}
	c.key = key
	c.sealed = sealed
	c.store(password)
	c.log.Debug("master key generated", zap.String("id", key.ID()))
	return nil
}

// MasterPassword returns the unsealed master password. Before expiry it comes
// from the cache; afterwards src is asked for the passphrase again.
func (c *CachedKey) MasterPassword(ctx context.Context, src PassphraseSource, prompt string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return nil, fault.New(fault.KindPrecondition, "PURSE-MK-010", "master key used before generation")
	}
	if v, ok := c.cache.Get(cacheEntry); ok {
		return append([]byte(nil), v.([]byte)...), nil
	}
	if src == nil {
		return nil, fault.New(fault.KindOwnership, "PURSE-MK-011", "master password expired and no passphrase source given")
	}

	c.log.Debug("master password not cached, asking for passphrase", zap.String("id", c.key.ID()), zap.String("prompt", prompt))
	pass, err := src.Passphrase(ctx, prompt, false)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-MK-012", "obtain master passphrase", err)
	}
	password, err := c.key.Decrypt(pass, c.sealed)
	if err != nil {
		return nil, err
	}
	c.store(password)
	return password, nil
}

func (c *CachedKey) store(password []byte) {
	switch {
	case c.timeout == 0:
		return
	case c.timeout < 0:
		c.cache.Set(cacheEntry, append([]byte(nil), password...), cache.NoExpiration)
	default:
		c.cache.Set(cacheEntry, append([]byte(nil), password...), c.timeout)
	}
}

// Timeout returns the cache timeout.
func (c *CachedKey) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// SetTimeout changes the cache timeout. A currently cached password is
// re-cached under the new timeout.
func (c *CachedKey) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
	v, ok := c.cache.Get(cacheEntry)
	c.cache.Delete(cacheEntry)
	if ok {
		c.store(v.([]byte))
	}
}

// IsCached reports whether the password is currently held unsealed.
func (c *CachedKey) IsCached() bool {
	_, ok := c.cache.Get(cacheEntry)
	return ok
}

// Reset drops the cached password so the next use asks again.
func (c *CachedKey) Reset() {
	c.cache.Delete(cacheEntry)
}

// Marshal encodes the sealed master key as an armored field. The cached
// password is never serialized.
func (c *CachedKey) Marshal() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return "", fault.New(fault.KindPrecondition, "PURSE-MK-020", "master key not generated")
	}
	raw := c.key.Marshal() + "\n" + base64.StdEncoding.EncodeToString(c.sealed)
	return armor.EncodeField([]byte(raw)), nil
}

// Parse decodes a master key produced by Marshal.
func Parse(field string, opts ...Option) (*CachedKey, error) {
	raw, err := armor.DecodeField(field)
	if err != nil {
		return nil, err
	}
	keyText, sealedText, ok := strings.Cut(string(raw), "\n")
	if !ok {
		return nil, fault.New(fault.KindDecode, "PURSE-MK-021", "malformed master key")
	}
	key, err := keys.ParseSymmetricKey(keyText)
	if err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sealedText))
	if err != nil || len(sealed) == 0 {
		return nil, fault.New(fault.KindDecode, "PURSE-MK-022", "malformed sealed master password")
	}
	c := New(opts...)
	c.key = key
	c.sealed = sealed
	return c, nil
}
