package purse

import (
	"context"
	"strings"

	"xdao.co/purse/armor"
	"xdao.co/purse/fault"
	"xdao.co/purse/storage"
)

// Factory loads a purse from its canonical text, which may be armored.
func Factory(text string, opts ...Option) (*Purse, error) {
	_, first, err := armor.DearmorAndTrim(text)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(first, Bookend) {
		return nil, fault.Newf(fault.KindParse, "PURSE-FACTORY-001", "not a purse: %q", first)
	}
	p := newPurse(opts...)
	if err := p.LoadFromString(text); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// FactoryForNotary is Factory that also requires the purse to belong to
// notaryID.
func FactoryForNotary(text, notaryID string, opts ...Option) (*Purse, error) {
	p, err := Factory(text, opts...)
	if err != nil {
		return nil, err
	}
	if p.notaryID != notaryID {
		p.Release()
		return nil, fault.Newf(fault.KindScope, "PURSE-FACTORY-010", "purse notary %q, want %q", p.notaryID, notaryID)
	}
	return p, nil
}

// FactoryForInstrument is FactoryForNotary that also requires the purse to
// hold instrumentID.
func FactoryForInstrument(text, notaryID, instrumentID string, opts ...Option) (*Purse, error) {
	p, err := FactoryForNotary(text, notaryID, opts...)
	if err != nil {
		return nil, err
	}
	if p.instrumentID != instrumentID {
		p.Release()
		return nil, fault.Newf(fault.KindScope, "PURSE-FACTORY-011", "purse instrument definition %q, want %q", p.instrumentID, instrumentID)
	}
	return p, nil
}

// Save writes the signed purse, armored, to purse/<notary>/<nymID>/<instrument>.
// Password-protected purses do not belong to a nym and are refused.
func (p *Purse) Save(ctx context.Context, s storage.Store, nymID string) error {
	if p.isPasswordProtected {
		return fault.New(fault.KindPrecondition, "PURSE-SAVE-001", "password-protected purses are not saved under a nym")
	}
	if p.Raw() == "" {
		return fault.New(fault.KindPrecondition, "PURSE-SAVE-002", "purse has not been signed")
	}
	path := []string{Folder, p.notaryID, nymID, p.instrumentID}
	if err := s.Write(ctx, []byte(armor.Encode(Type, []byte(p.Raw()))), path...); err != nil {
		return fault.Wrap(fault.KindStorage, "PURSE-SAVE-003", "write "+strings.Join(path, "/"), err)
	}
	p.SetLocation(strings.Join(path[:3], "/"), path[3])
	return nil
}

// Load reads the purse saved for nymID and checks its scope.
func Load(ctx context.Context, s storage.Store, notaryID, nymID, instrumentID string, opts ...Option) (*Purse, error) {
	path := []string{Folder, notaryID, nymID, instrumentID}
	b, err := s.Read(ctx, path...)
	if err != nil {
		return nil, fault.Wrap(fault.KindStorage, "PURSE-LOAD-001", "read "+strings.Join(path, "/"), err)
	}
	p, err := FactoryForInstrument(string(b), notaryID, instrumentID, opts...)
	if err != nil {
		return nil, err
	}
	p.SetLocation(strings.Join(path[:3], "/"), path[3])
	return p, nil
}
