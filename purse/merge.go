package purse

import (
	"context"

	"github.com/elliotchance/orderedmap/v2"
	"go.uber.org/zap"

	"xdao.co/purse/keys"
	"xdao.co/purse/owner"
	"xdao.co/purse/token"
)

type mergeEntry struct {
	tok       token.Token
	fromOther bool
}

// Merge drains p (opened with oldOwner) and other (opened with newOwner)
// into one set keyed by spendable ID, where a later duplicate replaces an
// earlier one. Tokens that came from other are reassigned to oldOwner and
// signed again by signer; then every surviving token is pushed back onto p
// with oldOwner.
//
// Failures on single tokens are logged with their index and stage and make
// Merge return false, but the remaining tokens are still processed. A token
// whose reassignment or signature failed is pushed back anyway so nothing
// drained is lost; it may stay sealed to newOwner inside p. The caller signs
// and saves p afterwards.
func (p *Purse) Merge(ctx context.Context, signer *keys.Nym, oldOwner, newOwner owner.Key, other *Purse) bool {
	if other != nil && (other.notaryID != p.notaryID || other.instrumentID != p.instrumentID) {
		p.log.Error("merge: purses have different scope",
			zap.String("notaryID", other.notaryID),
			zap.String("instrumentDefinitionID", other.instrumentID))
		return false
	}

	ok := true
	set := orderedmap.NewOrderedMap[string, mergeEntry]()

	drain := func(src *Purse, o owner.Key, fromOther bool) {
		for i := 0; ; i++ {
			t, err := src.Pop(ctx, o)
			if err != nil {
				p.log.Error("merge: cannot open token", zap.Int("token", i), zap.String("stage", "drain"),
					zap.Bool("otherPurse", fromOther), zap.Error(err))
				ok = false
				return
			}
			if t == nil {
				return
			}
			key := t.SpendableID()
			set.Delete(key)
			set.Set(key, mergeEntry{tok: t, fromOther: fromOther})
		}
	}
	drain(p, oldOwner, false)
	if other != nil && other != p {
		drain(other, newOwner, true)
	}

	i := 0
	for el := set.Front(); el != nil; el = el.Next() {
		e := el.Value
		if e.fromOther {
			if err := e.tok.ReassignOwnership(ctx, newOwner, oldOwner); err != nil {
				p.log.Error("merge: cannot reassign token", zap.Int("token", i), zap.String("stage", "reassign"),
					zap.String("spendable", prefix(el.Key)), zap.Error(err))
				ok = false
			} else if err := e.tok.Sign(signer); err != nil {
				p.log.Error("merge: cannot sign reassigned token", zap.Int("token", i), zap.String("stage", "sign"),
					zap.String("spendable", prefix(el.Key)), zap.Error(err))
				ok = false
			}
		}
		i++
	}

	i = 0
	for el := set.Front(); el != nil; el = el.Next() {
		if pushed, err := p.Push(ctx, oldOwner, el.Value.tok); !pushed {
			p.log.Error("merge: cannot push token", zap.Int("token", i), zap.String("stage", "push"),
				zap.String("spendable", prefix(el.Key)), zap.Error(err))
			ok = false
		}
		i++
	}
	return ok
}

func prefix(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
