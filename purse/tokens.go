package purse

import (
	"context"

	"go.uber.org/zap"

	"xdao.co/purse/fault"
	"xdao.co/purse/owner"
	"xdao.co/purse/token"
)

// Push seals t to o and puts it at the front of the purse. A token for
// another notary or instrument definition is refused with a scope error and
// the purse is left unchanged, as it is when sealing fails.
func (p *Purse) Push(ctx context.Context, o owner.Key, t token.Token) (bool, error) {
	if t == nil || o == nil {
		return false, fault.New(fault.KindPrecondition, "PURSE-PUSH-001", "push needs a token and an owner")
	}
	if err := p.checkScope(t); err != nil {
		return false, err
	}
	text := t.Text()
	if text == "" {
		return false, fault.New(fault.KindPrecondition, "PURSE-PUSH-002", "token must be signed before it is pushed")
	}
	env, err := o.Seal(ctx, []byte(text), "Sealing a token into a purse")
	if err != nil {
		return false, err
	}

	p.tokens = append([][]byte{env}, p.tokens...)
	p.totalValue += t.Denomination()
	p.narrowWindow(t.ValidFrom(), t.ValidTo())
	p.warnInvertedWindow()
	return true, nil
}

// Pop opens the front token with o and removes it. An empty purse returns
// nil, nil. When the token cannot be opened the purse is left unchanged and
// the error says so; it never means "empty".
//
// The validity window is not widened again; see RecalculateExpirationDates.
func (p *Purse) Pop(ctx context.Context, o owner.Key) (token.Token, error) {
	if len(p.tokens) == 0 {
		return nil, nil
	}
	t, err := p.openFront(ctx, o)
	if err != nil {
		return nil, err
	}
	p.tokens = p.tokens[1:]
	p.totalValue -= t.Denomination()
	return t, nil
}

// Peek opens the front token with o without removing it. A token whose
// scope does not match the purse is refused.
func (p *Purse) Peek(ctx context.Context, o owner.Key) (token.Token, error) {
	if len(p.tokens) == 0 {
		return nil, nil
	}
	t, err := p.openFront(ctx, o)
	if err != nil {
		return nil, err
	}
	if err := p.checkScope(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *Purse) openFront(ctx context.Context, o owner.Key) (token.Token, error) {
	if o == nil {
		return nil, fault.New(fault.KindPrecondition, "PURSE-POP-001", "no owner to open the purse with")
	}
	return p.openToken(ctx, o, p.tokens[0])
}

func (p *Purse) openToken(ctx context.Context, o owner.Key, env []byte) (token.Token, error) {
	plain, err := o.Open(ctx, env, "Opening a token in a purse")
	if err != nil {
		return nil, err
	}
	t, err := token.Factory(string(plain), p.contractOpts...)
	if err != nil {
		return nil, fault.Wrap(fault.KindOwnership, "PURSE-POP-002", "purse envelope did not hold a cash token", err)
	}
	return t, nil
}

func (p *Purse) checkScope(t token.Token) error {
	if t.InstrumentDefinitionID() != p.instrumentID {
		return fault.Newf(fault.KindScope, "PURSE-SCOPE-001",
			"token instrument definition %q does not match purse %q", t.InstrumentDefinitionID(), p.instrumentID)
	}
	if t.NotaryID() != p.notaryID {
		return fault.Newf(fault.KindScope, "PURSE-SCOPE-002",
			"token notary %q does not match purse %q", t.NotaryID(), p.notaryID)
	}
	return nil
}

// narrowWindow moves validFrom up and validTo down to cover one more token.
// A zero validTo is unbounded and never narrows.
func (p *Purse) narrowWindow(from, to int64) {
	if from > p.latestValidFrom {
		p.latestValidFrom = from
	}
	if to != 0 && (p.earliestValidTo == 0 || to < p.earliestValidTo) {
		p.earliestValidTo = to
	}
}

func (p *Purse) warnInvertedWindow() {
	if p.earliestValidTo != 0 && p.latestValidFrom > p.earliestValidTo {
		p.log.Warn("purse validity window is inverted",
			zap.Int64("validFrom", p.latestValidFrom),
			zap.Int64("validTo", p.earliestValidTo),
			zap.String("instrumentDefinitionID", p.instrumentID))
	}
}

// RecalculateExpirationDates opens every token with o and rebuilds the
// validity window from scratch. On error the window is left as it was.
func (p *Purse) RecalculateExpirationDates(ctx context.Context, o owner.Key) error {
	if o == nil {
		return fault.New(fault.KindPrecondition, "PURSE-POP-001", "no owner to open the purse with")
	}
	saved := [2]int64{p.latestValidFrom, p.earliestValidTo}
	p.latestValidFrom, p.earliestValidTo = 0, 0
	for i, env := range p.tokens {
		t, err := p.openToken(ctx, o, env)
		if err != nil {
			p.latestValidFrom, p.earliestValidTo = saved[0], saved[1]
			p.log.Error("recalculating purse window", zap.Int("token", i), zap.Error(err))
			return err
		}
		p.narrowWindow(t.ValidFrom(), t.ValidTo())
	}
	p.warnInvertedWindow()
	return nil
}

// IsExpired reports whether the earliest validTo has passed.
func (p *Purse) IsExpired() bool {
	return p.earliestValidTo != 0 && p.now().Unix() >= p.earliestValidTo
}

// VerifyCurrentDate reports whether now lies inside the validity window.
func (p *Purse) VerifyCurrentDate() bool {
	now := p.now().Unix()
	return now >= p.latestValidFrom && (p.earliestValidTo == 0 || now <= p.earliestValidTo)
}
