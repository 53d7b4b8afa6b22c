package purse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMerge_UnionBySpendable(t *testing.T) {
	f := newFixture(t)
	t1 := f.token(t, f.alice, mintArgs{serial: "t1", denom: 10, from: 100, to: 900})
	t2 := f.token(t, f.alice, mintArgs{serial: "t2", denom: 20, from: 100, to: 900})
	t2b := f.token(t, f.bob, mintArgs{serial: "t2", denom: 20, from: 100, to: 900})
	t3 := f.token(t, f.bob, mintArgs{serial: "t3", denom: 30, from: 200, to: 800})

	a := New(testNotary, testInstrument)
	mustPush(t, a, f.alice, t1)
	mustPush(t, a, f.alice, t2)
	b := New(testNotary, testInstrument)
	mustPush(t, b, f.bob, t2b)
	mustPush(t, b, f.bob, t3)

	require.True(t, a.Merge(context.Background(), f.mint, f.alice, f.bob, b))
	assert.Equal(t, 3, a.Count())
	assert.Equal(t, int64(60), a.TotalValue())
	assert.Equal(t, int64(200), a.LatestValidFrom())
	assert.Equal(t, int64(800), a.EarliestValidTo())
	assert.True(t, b.IsEmpty())

	assert.Equal(t, spendableIDs(t1, t2, t3), drainIDs(t, a, f.alice))
}

func TestMerge_ReassignedTokensAreSignedAndOpenable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := New(testNotary, testInstrument)
	b := New(testNotary, testInstrument)
	mustPush(t, b, f.bob, f.token(t, f.bob, mintArgs{serial: "r1"}))

	require.True(t, a.Merge(ctx, f.mint, f.alice, f.bob, b))
	tok, err := a.Pop(ctx, f.alice)
	require.NoError(t, err)
	plain, err := tok.Spendable(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "r1", plain)
	_, err = tok.Spendable(ctx, f.bob)
	assert.Error(t, err)
}

func TestMerge_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := New(testNotary, testInstrument)
	mustPush(t, a, f.alice, f.token(t, f.alice, mintArgs{serial: "i1", denom: 5}))
	mustPush(t, a, f.alice, f.token(t, f.alice, mintArgs{serial: "i2", denom: 7}))
	require.NoError(t, a.Sign(f.mint))

	b, err := Factory(a.Raw())
	require.NoError(t, err)

	require.True(t, a.Merge(ctx, f.mint, f.alice, f.alice, b))
	assert.Equal(t, 2, a.Count())
	assert.Equal(t, int64(12), a.TotalValue())
}

func TestMerge_Self(t *testing.T) {
	f := newFixture(t)
	a := New(testNotary, testInstrument)
	mustPush(t, a, f.alice, f.token(t, f.alice, mintArgs{serial: "m1", denom: 5}))
	mustPush(t, a, f.alice, f.token(t, f.alice, mintArgs{serial: "m2", denom: 6}))

	require.True(t, a.Merge(context.Background(), f.mint, f.alice, f.alice, a))
	assert.Equal(t, 2, a.Count())
	assert.Equal(t, int64(11), a.TotalValue())
}

func TestMerge_UnopenableOtherReturnsFalse(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	f := newFixture(t)
	a := New(testNotary, testInstrument, WithLogger(zap.New(core)))
	mustPush(t, a, f.alice, f.token(t, f.alice, mintArgs{serial: "k1", denom: 5}))
	b := New(testNotary, testInstrument)
	mustPush(t, b, f.bob, f.token(t, f.bob, mintArgs{serial: "k2", denom: 9}))

	// carol cannot open bob's tokens.
	assert.False(t, a.Merge(context.Background(), f.mint, f.alice, f.carol, b))
	assert.Equal(t, 1, logs.FilterMessage("merge: cannot open token").Len())
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, int64(5), a.TotalValue())
	assert.Equal(t, 1, b.Count())
}

func TestMerge_ScopeMismatch(t *testing.T) {
	f := newFixture(t)
	a := New(testNotary, testInstrument)
	mustPush(t, a, f.alice, f.token(t, f.alice, mintArgs{serial: "x1"}))
	b := New(testNotary, "eur")
	mustPush(t, b, f.bob, f.token(t, f.bob, mintArgs{serial: "x2", instrument: "eur"}))

	assert.False(t, a.Merge(context.Background(), f.mint, f.alice, f.bob, b))
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, 1, b.Count())
}

func TestMerge_SignFailureFailsMergeButKeepsToken(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	f := newFixture(t)
	a := New(testNotary, testInstrument, WithLogger(zap.New(core)))
	b := New(testNotary, testInstrument)
	mustPush(t, b, f.bob, f.token(t, f.bob, mintArgs{serial: "f1", denom: 4}))

	// A public-only nym cannot sign.
	signer := f.mint.Public()
	assert.False(t, a.Merge(context.Background(), signer, f.alice, f.bob, b))
	assert.Equal(t, 1, logs.FilterMessage("merge: cannot sign reassigned token").Len())
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, int64(4), a.TotalValue())
}

func TestMerge_ReassignFailureFailsMergeButKeepsToken(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	f := newFixture(t)
	a := New(testNotary, testInstrument, WithLogger(zap.New(core)))
	b := New(testNotary, testInstrument)

	// The envelope opens for bob but the spendable inside is sealed to carol.
	mustPush(t, b, f.bob, f.token(t, f.carol, mintArgs{serial: "g1", denom: 4}))

	assert.False(t, a.Merge(context.Background(), f.mint, f.alice, f.bob, b))
	assert.Equal(t, 1, logs.FilterMessage("merge: cannot reassign token").Len())
	assert.Zero(t, logs.FilterMessage("merge: cannot sign reassigned token").Len())
	assert.Equal(t, 1, a.Count())
}
