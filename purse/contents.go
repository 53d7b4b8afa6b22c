package purse

import (
	"strconv"

	"go.uber.org/zap"

	"xdao.co/purse/armor"
	"xdao.co/purse/contract"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/masterkey"
)

// Sign replaces all signatures with one by nym over the current contents
// and refreshes the raw text.
func (p *Purse) Sign(nym *keys.Nym) error {
	p.ReleaseSignatures()
	if err := p.SignContract(nym); err != nil {
		return err
	}
	return p.SaveContract()
}

// UpdateContents renders the purse element.
func (p *Purse) UpdateContents(*contract.Contract) (string, error) {
	nymID := ""
	if p.isNymIDIncluded {
		nymID = p.nymID
	}
	t := contract.NewTag("purse").
		Attr("version", p.version).
		Attr("totalValue", strconv.FormatInt(p.totalValue, 10)).
		Attr("validFrom", strconv.FormatInt(p.latestValidFrom, 10)).
		Attr("validTo", strconv.FormatInt(p.earliestValidTo, 10)).
		Attr("isPasswordProtected", contract.FormatBool(p.isPasswordProtected)).
		Attr("isNymIDIncluded", contract.FormatBool(p.isNymIDIncluded)).
		Attr("nymID", nymID).
		Attr("instrumentDefinitionID", p.instrumentID).
		Attr("notaryID", p.notaryID)

	if p.isPasswordProtected {
		if p.master == nil || p.internalKey == nil || !p.master.IsGenerated() {
			return "", fault.New(fault.KindPrecondition, "PURSE-PURSE-020", "password-protected purse is missing its keys")
		}
		cached, err := p.master.Marshal()
		if err != nil {
			return "", err
		}
		t.AddText("cachedKey", cached)
		t.AddText("internalKey", armor.EncodeField([]byte(p.internalKey.Marshal())))
	}

	for _, env := range p.tokens {
		t.AddText("token", armor.EncodeField(env))
	}
	return t.String(), nil
}

// HandleNode loads the purse element and its key and token children.
func (p *Purse) HandleNode(_ *contract.Contract, r contract.NodeReader) (contract.Outcome, error) {
	switch r.Name() {
	case "purse":
		return contract.NodeHandled, p.loadPurseElement(r)

	case "cachedKey":
		if err := p.checkKeyElement("cachedKey"); err != nil {
			return contract.NodeUnknown, err
		}
		text, err := contract.ElementText(r)
		if err != nil {
			return contract.NodeUnknown, err
		}
		mk, err := masterkey.Parse(text,
			masterkey.WithTimeout(p.masterTimeout),
			masterkey.WithKDF(p.kdf),
			masterkey.WithLogger(p.log))
		if err != nil {
			return contract.NodeUnknown, err
		}
		p.releaseMaster()
		p.master = p.registry.Acquire(mk)
		return contract.NodeHandled, nil

	case "internalKey":
		if err := p.checkKeyElement("internalKey"); err != nil {
			return contract.NodeUnknown, err
		}
		text, err := contract.ElementText(r)
		if err != nil {
			return contract.NodeUnknown, err
		}
		raw, err := armor.DecodeField(text)
		if err != nil {
			return contract.NodeUnknown, err
		}
		key, err := keys.ParseSymmetricKey(string(raw))
		if err != nil {
			return contract.NodeUnknown, err
		}
		p.internalKey = key
		return contract.NodeHandled, nil

	case "token":
		text, err := contract.OptionalElementText(r)
		if err != nil {
			return contract.NodeUnknown, err
		}
		if text == "" {
			return contract.NodeUnknown, fault.New(fault.KindParse, "PURSE-PURSE-015", "token element without value")
		}
		env, err := armor.DecodeField(text)
		if err != nil {
			return contract.NodeUnknown, err
		}
		p.tokens = append(p.tokens, env)
		return contract.NodeHandled, nil
	}
	return contract.NodeUnknown, nil
}

func (p *Purse) loadPurseElement(r contract.NodeReader) error {
	if v := r.Attr("version"); v != "" {
		p.version = v
	}

	p.totalValue = 0
	if v, err := strconv.ParseInt(r.Attr("totalValue"), 10, 64); err == nil && v > 0 {
		p.totalValue = v
	}

	var err error
	if p.latestValidFrom, err = parseTimestamp(r.Attr("validFrom")); err != nil {
		return err
	}
	if p.earliestValidTo, err = parseTimestamp(r.Attr("validTo")); err != nil {
		return err
	}

	p.isPasswordProtected = contract.ParseBool(r.Attr("isPasswordProtected"))
	p.isNymIDIncluded = contract.ParseBool(r.Attr("isNymIDIncluded"))

	p.notaryID = r.Attr("notaryID")
	if p.notaryID == "" {
		return fault.New(fault.KindParse, "PURSE-PURSE-001", "purse is missing its notaryID")
	}
	p.instrumentID = r.Attr("instrumentDefinitionID")
	if p.instrumentID == "" {
		return fault.New(fault.KindParse, "PURSE-PURSE-002", "purse is missing its instrumentDefinitionID")
	}

	p.nymID = ""
	if p.isNymIDIncluded {
		p.nymID = r.Attr("nymID")
		if p.nymID == "" {
			return fault.New(fault.KindParse, "PURSE-PURSE-003", "purse includes a nymID but none was given")
		}
	}

	p.log.Debug("loaded purse",
		zap.String("notaryID", p.notaryID),
		zap.String("instrumentDefinitionID", p.instrumentID),
		zap.String("nymID", p.nymID),
		zap.Bool("passwordProtected", p.isPasswordProtected))
	return nil
}

func (p *Purse) checkKeyElement(name string) error {
	if !p.isPasswordProtected {
		return fault.Newf(fault.KindParse, "PURSE-PURSE-010", "unexpected %s in a purse that is not password protected", name)
	}
	if p.nymID != "" {
		return fault.Newf(fault.KindParse, "PURSE-PURSE-011", "unexpected %s in a purse that names a nym", name)
	}
	return nil
}

// validate checks what can only be judged once the whole body is loaded.
func (p *Purse) validate() error {
	if p.notaryID == "" || p.instrumentID == "" {
		return fault.New(fault.KindParse, "PURSE-PURSE-012", "body has no purse element")
	}
	if p.isPasswordProtected && (p.master == nil || p.internalKey == nil) {
		return fault.New(fault.KindParse, "PURSE-PURSE-013", "password-protected purse is missing its keys")
	}
	return nil
}

// parseTimestamp reads seconds since the epoch. Empty means unbounded.
func parseTimestamp(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fault.Wrap(fault.KindParse, "PURSE-PURSE-004", "invalid timestamp "+strconv.Quote(s), err)
	}
	return v, nil
}
