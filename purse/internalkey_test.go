package purse

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/purse/fault"
	"xdao.co/purse/masterkey"
	"xdao.co/purse/storage"
)

const testPassphrase = "correct horse battery staple"

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) Passphrase(ctx context.Context, _ string, _ bool) ([]byte, error) {
	s.calls.Add(1)
	return []byte(testPassphrase), nil
}

func protectedPurse(t *testing.T, reg *masterkey.Registry, opts ...Option) *Purse {
	t.Helper()
	opts = append([]Option{WithKDF(testKDF), WithRegistry(reg)}, opts...)
	p := New(testNotary, testInstrument, opts...)
	ok, err := p.GenerateInternalKey(context.Background(), masterkey.StaticPassphrase(testPassphrase))
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func TestGenerateInternalKey_ProtectsPurse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := NewForNym(testNotary, "nym-alice", testInstrument, WithKDF(testKDF), WithRegistry(masterkey.NewRegistry()))

	ok, err := p.GenerateInternalKey(ctx, masterkey.StaticPassphrase(testPassphrase))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, p.IsPasswordProtected())
	assert.NotNil(t, p.InternalKey())
	assert.True(t, p.InternalMaster().IsGenerated())
	_, included := p.NymID()
	assert.False(t, included)

	o, err := p.OwnerKey()
	require.NoError(t, err)
	tok := f.token(t, o, mintArgs{serial: "pk1", denom: 12})
	mustPush(t, p, o, tok)

	got, err := p.Pop(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, tok.SpendableID(), got.SpendableID())
	plain, err := got.Spendable(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, "pk1", plain)

	// A nym cannot open what the internal key sealed.
	mustPush(t, p, o, tok)
	_, err = p.Pop(ctx, f.alice)
	assert.True(t, fault.IsKind(err, fault.KindOwnership))
}

func TestGenerateInternalKey_Preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := masterkey.StaticPassphrase(testPassphrase)

	full := NewForNym(testNotary, "nym-alice", testInstrument, WithKDF(testKDF))
	mustPush(t, full, f.alice, f.token(t, f.alice, mintArgs{serial: "pc1"}))
	ok, err := full.GenerateInternalKey(ctx, src)
	assert.False(t, ok)
	assert.Equal(t, "PURSE-KEY-003", fault.RuleIDOf(err))
	assert.False(t, full.IsPasswordProtected())
	nymID, included := full.NymID()
	assert.True(t, included)
	assert.Equal(t, "nym-alice", nymID)

	ok, err = New(testNotary, testInstrument).GenerateInternalKey(ctx, nil)
	assert.False(t, ok)
	assert.Equal(t, "PURSE-KEY-004", fault.RuleIDOf(err))

	p := protectedPurse(t, masterkey.NewRegistry())
	key := p.InternalKey()
	ok, err = p.GenerateInternalKey(ctx, src)
	assert.False(t, ok)
	assert.Equal(t, "PURSE-KEY-001", fault.RuleIDOf(err))
	assert.Same(t, key, p.InternalKey())
}

func TestProtectedPurse_SharesMasterKeyOnLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := masterkey.NewRegistry()
	p := protectedPurse(t, reg)
	o, err := p.OwnerKey()
	require.NoError(t, err)
	mustPush(t, p, o, f.token(t, o, mintArgs{serial: "sh1", denom: 3}))
	require.NoError(t, p.Sign(f.mint))

	id := p.InternalMaster().ID()
	assert.Equal(t, 1, reg.Refs(id))

	q, err := Factory(p.Raw(), WithKDF(testKDF), WithRegistry(reg))
	require.NoError(t, err)
	assert.True(t, q.IsPasswordProtected())
	assert.Same(t, p.InternalMaster(), q.InternalMaster())
	assert.Equal(t, 2, reg.Refs(id))
	assert.Equal(t, p.InternalKey().ID(), q.InternalKey().ID())

	// The shared master is still cached, so no passphrase source is needed.
	qo, err := q.OwnerKey()
	require.NoError(t, err)
	tok, err := q.Pop(ctx, qo)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tok.Denomination())

	q.Release()
	assert.Equal(t, 1, reg.Refs(id))
	assert.Nil(t, q.InternalMaster())
}

func TestProtectedPurse_AsksAgainAfterExpiry(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{}
	p := New(testNotary, testInstrument,
		WithKDF(testKDF),
		WithRegistry(masterkey.NewRegistry()),
		WithMasterKeyTimeout(time.Hour))

	ok, err := p.GenerateInternalKey(ctx, src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(1), src.calls.Load())

	_, err = p.Passphrase(ctx, "spend")
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	p.InternalMaster().Reset()
	_, err = p.Passphrase(ctx, "spend")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	_, err = p.Passphrase(ctx, "spend")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestProtectedPurse_NoCaching(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{}
	p := New(testNotary, testInstrument,
		WithKDF(testKDF),
		WithRegistry(masterkey.NewRegistry()),
		WithMasterKeyTimeout(0))

	ok, err := p.GenerateInternalKey(ctx, src)
	require.NoError(t, err)
	require.True(t, ok)
	asked := src.calls.Load()

	for i := 1; i <= 2; i++ {
		_, err = p.Passphrase(ctx, "spend")
		require.NoError(t, err)
		assert.Equal(t, asked+int32(i), src.calls.Load())
	}
}

func TestProtectedPurse_Refusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	plain := New(testNotary, testInstrument)
	_, err := plain.OwnerKey()
	assert.Equal(t, "PURSE-PURSE-031", fault.RuleIDOf(err))
	_, err = plain.Passphrase(ctx, "x")
	assert.Equal(t, "PURSE-PURSE-030", fault.RuleIDOf(err))

	p := protectedPurse(t, masterkey.NewRegistry())
	require.NoError(t, p.Sign(f.mint))
	err = p.Save(ctx, storage.NewMemStore(), "nym-alice")
	assert.Equal(t, "PURSE-SAVE-001", fault.RuleIDOf(err))
}
