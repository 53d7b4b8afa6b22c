package contract

import "xdao.co/purse/fault"

// Rule is an explicit, named check over a loaded contract.
//
// ID must be stable across versions.
// Apply must be deterministic and side-effect free.
type Rule struct {
	ID    string
	Apply func(*Contract) error
}

func (r Rule) apply(c *Contract) error {
	if r.Apply == nil {
		return fault.New(fault.KindInternal, "PURSE-INTERNAL-001", "nil rule Apply")
	}
	return r.Apply(c)
}

// ValidateRules runs rules in order, returning the first failure.
func ValidateRules(c *Contract, rules []Rule) error {
	for _, r := range rules {
		if err := r.apply(c); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRulesAll runs all rules in order and returns every violation.
func ValidateRulesAll(c *Contract, rules []Rule) []error {
	var out []error
	for _, r := range rules {
		if err := r.apply(c); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// TypeRule requires the contract to be of type typ.
func TypeRule(typ string) Rule {
	return Rule{
		ID: "PURSE-RULE-001",
		Apply: func(c *Contract) error {
			if c.Type() != typ {
				return fault.Newf(fault.KindParse, "PURSE-RULE-001", "contract type %q, want %q", c.Type(), typ)
			}
			return nil
		},
	}
}

// SignedRule requires at least one signature.
var SignedRule = Rule{
	ID: "PURSE-RULE-002",
	Apply: func(c *Contract) error {
		if len(c.sigs) == 0 {
			return fault.New(fault.KindCrypto, "PURSE-RULE-002", "contract is unsigned")
		}
		return nil
	},
}

// SignerRule requires the signer nym's signature to verify.
var SignerRule = Rule{
	ID:    "PURSE-RULE-003",
	Apply: func(c *Contract) error { return c.VerifySignature() },
}
