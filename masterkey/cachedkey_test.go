package masterkey

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
)

var testKDF = keys.KDFParams{Time: 1, Memory: 1024, Threads: 1}

type countingSource struct {
	pass  []byte
	calls atomic.Int32
}

func (s *countingSource) Passphrase(_ context.Context, _ string, _ bool) ([]byte, error) {
	s.calls.Add(1)
	return append([]byte(nil), s.pass...), nil
}

func TestCachedKey_UsedBeforeGeneration(t *testing.T) {
	c := New(WithKDF(testKDF))
	assert.False(t, c.IsGenerated())
	_, err := c.MasterPassword(context.Background(), StaticPassphrase("x"), "unlock")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindPrecondition))
}

func TestCachedKey_PromptsOnlyAfterExpiry(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{pass: []byte("hunter2")}
	c := New(WithKDF(testKDF), WithTimeout(80*time.Millisecond))

	require.NoError(t, c.Generate(ctx, src))
	require.True(t, c.IsGenerated())
	assert.EqualValues(t, 1, src.calls.Load())

	first, err := c.MasterPassword(ctx, src, "unlock")
	require.NoError(t, err)
	second, err := c.MasterPassword(ctx, src, "unlock")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, src.calls.Load(), "cached password must not re-prompt")

	time.Sleep(150 * time.Millisecond)
	assert.False(t, c.IsCached())

	third, err := c.MasterPassword(ctx, src, "unlock")
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCachedKey_ZeroTimeoutAlwaysPrompts(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{pass: []byte("pw")}
	c := New(WithKDF(testKDF), WithTimeout(0))
	require.NoError(t, c.Generate(ctx, src))

	_, err := c.MasterPassword(ctx, src, "unlock")
	require.NoError(t, err)
	_, err = c.MasterPassword(ctx, src, "unlock")
	require.NoError(t, err)
	assert.EqualValues(t, 3, src.calls.Load())

	_, err = c.MasterPassword(ctx, nil, "unlock")
	assert.True(t, fault.IsKind(err, fault.KindOwnership))
}

func TestCachedKey_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	c := New(WithKDF(testKDF))
	require.NoError(t, c.Generate(ctx, StaticPassphrase("right")))
	c.Reset()

	_, err := c.MasterPassword(ctx, StaticPassphrase("wrong"), "unlock")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindOwnership))

	failing := PassphraseFunc(func(context.Context, string, bool) ([]byte, error) {
		return nil, errors.New("user cancelled")
	})
	_, err = c.MasterPassword(ctx, failing, "unlock")
	assert.True(t, fault.IsKind(err, fault.KindOwnership))
}

func TestCachedKey_GenerateTwice(t *testing.T) {
	ctx := context.Background()
	c := New(WithKDF(testKDF))
	require.NoError(t, c.Generate(ctx, StaticPassphrase("a")))
	err := c.Generate(ctx, StaticPassphrase("a"))
	assert.True(t, fault.IsKind(err, fault.KindPrecondition))
}

func TestCachedKey_MarshalParse(t *testing.T) {
	ctx := context.Background()
	c := New(WithKDF(testKDF))
	require.NoError(t, c.Generate(ctx, StaticPassphrase("pw")))
	want, err := c.MasterPassword(ctx, nil, "unlock")
	require.NoError(t, err)

	field, err := c.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(field)
	require.NoError(t, err)
	assert.Equal(t, c.ID(), parsed.ID())
	assert.False(t, parsed.IsCached(), "cached password must not be serialized")

	got, err := parsed.MasterPassword(ctx, StaticPassphrase("pw"), "unlock")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Parse("not armored !!")
	assert.True(t, fault.IsKind(err, fault.KindDecode))
}

func TestCachedKey_SetTimeoutKeepsCachedPassword(t *testing.T) {
	ctx := context.Background()
	c := New(WithKDF(testKDF), WithTimeout(time.Minute))
	require.NoError(t, c.Generate(ctx, StaticPassphrase("pw")))
	require.True(t, c.IsCached())

	c.SetTimeout(-1)
	assert.Equal(t, time.Duration(-1), c.Timeout())
	assert.True(t, c.IsCached())

	c.SetTimeout(0)
	assert.False(t, c.IsCached())
}
