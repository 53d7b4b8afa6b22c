package purse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"

	"xdao.co/purse/fault"
	"xdao.co/purse/storage"
	"xdao.co/purse/storage/leveldb"
	"xdao.co/purse/storage/localfs"
)

func TestSaveLoad(t *testing.T) {
	stores := map[string]func(t *testing.T) storage.Store{
		"memory": func(t *testing.T) storage.Store { return storage.NewMemStore() },
		"localfs": func(t *testing.T) storage.Store {
			s, err := localfs.New(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"leveldb": func(t *testing.T) storage.Store {
			s, err := leveldb.OpenStorage(ldb_storage.NewMemStorage())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			f := newFixture(t)

			p := NewForNym(testNotary, "nym-alice", testInstrument)
			mustPush(t, p, f.alice, f.token(t, f.alice, mintArgs{serial: "st1", denom: 40, from: 5, to: 50}))
			mustPush(t, p, f.alice, f.token(t, f.alice, mintArgs{serial: "st2", denom: 2, from: 7, to: 70}))

			err := p.Save(ctx, s, "nym-alice")
			assert.Equal(t, "PURSE-SAVE-002", fault.RuleIDOf(err))

			require.NoError(t, p.Sign(f.mint))
			require.NoError(t, p.Save(ctx, s, "nym-alice"))
			folder, file := p.Location()
			assert.Equal(t, "purse/notary-1/nym-alice", folder)
			assert.Equal(t, testInstrument, file)

			q, err := Load(ctx, s, testNotary, "nym-alice", testInstrument)
			require.NoError(t, err)
			assert.Equal(t, p.ID(), q.ID())
			assert.Equal(t, int64(42), q.TotalValue())
			assert.Equal(t, int64(7), q.LatestValidFrom())
			assert.Equal(t, int64(50), q.EarliestValidTo())
			assert.Len(t, drainIDs(t, q, f.alice), 2)

			_, err = Load(ctx, s, testNotary, "nym-bob", testInstrument)
			require.Error(t, err)
			assert.Equal(t, "PURSE-LOAD-001", fault.RuleIDOf(err))
			assert.True(t, errors.Is(err, storage.ErrNotFound))
		})
	}
}
