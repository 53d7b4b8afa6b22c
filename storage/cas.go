package storage

import (
	"bytes"
	"context"

	"github.com/ipfs/go-cid"

	"xdao.co/purse/cidutil"
)

// CAS is a minimal content-addressable storage interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written (callers are responsible for supplying canonical bytes).
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) bool
}

// ContentFolder is the top-level path segment ContentStore writes under.
const ContentFolder = "cas"

// ContentStore implements CAS on top of a Store. Objects live at
// cas/<last two CID characters>/<CID> and are verified on every read.
type ContentStore struct {
	Store Store
}

var _ CAS = ContentStore{}

func (c ContentStore) pathFor(id cid.Cid) []string {
	s := id.String()
	if len(s) < 2 {
		return []string{ContentFolder, s}
	}
	return []string{ContentFolder, s[len(s)-2:], s}
}

func (c ContentStore) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, ErrInvalidCID
	}
	path := c.pathFor(id)
	ok, err := c.Store.Exists(ctx, path...)
	if err != nil {
		return cid.Undef, err
	}
	if ok {
		existing, err := c.Store.Read(ctx, path...)
		if err != nil || !bytes.Equal(existing, data) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}
	if err := c.Store.Write(ctx, data, path...); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// PutAs stores data under an identifier computed with any supported hash.
// It fails with ErrCIDMismatch when data does not hash to id.
func (c ContentStore) PutAs(ctx context.Context, id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	if !cidutil.Matches(id, data) {
		return ErrCIDMismatch
	}
	path := c.pathFor(id)
	ok, err := c.Store.Exists(ctx, path...)
	if err != nil {
		return err
	}
	if ok {
		existing, err := c.Store.Read(ctx, path...)
		if err != nil || !bytes.Equal(existing, data) {
			return ErrImmutable
		}
		return nil
	}
	return c.Store.Write(ctx, data, path...)
}

func (c ContentStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	b, err := c.Store.Read(ctx, c.pathFor(id)...)
	if err != nil {
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, ErrCIDMismatch
	}
	return b, nil
}

func (c ContentStore) Has(ctx context.Context, id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	ok, err := c.Store.Exists(ctx, c.pathFor(id)...)
	return err == nil && ok
}
