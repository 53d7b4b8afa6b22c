package contract

import (
	"strings"
)

// AddBookends frames body and signatures as canonical signed text.
func AddBookends(typ, hashType, body string, sigs []Signature, productVersion, comment string) string {
	var sb strings.Builder
	sb.WriteString("-----BEGIN SIGNED ")
	sb.WriteString(typ)
	sb.WriteString("-----\nHash: ")
	sb.WriteString(hashType)
	sb.WriteString("\n\n")
	sb.WriteString(body)

	for _, s := range sigs {
		sb.WriteString("-----BEGIN ")
		sb.WriteString(typ)
		sb.WriteString(" SIGNATURE-----\nVersion: ")
		sb.WriteString(productVersion)
		sb.WriteString("\nComment: ")
		sb.WriteString(comment)
		sb.WriteString("\n")
		if s.Meta.HasMetadata() {
			sb.WriteString("Meta:    ")
			sb.WriteString(s.Meta.String())
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(s.Value)
		sb.WriteString("-----END ")
		sb.WriteString(typ)
		sb.WriteString(" SIGNATURE-----\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// Render returns the canonical signed text of the current body and signatures.
func (c *Contract) Render() string {
	return AddBookends(c.typ, c.hashType, c.body, c.sigs, c.productVersion, c.comment)
}

// SaveContract renders the current body and signatures into the raw text and
// recomputes the identifier.
func (c *Contract) SaveContract() error {
	c.raw = c.Render()
	return c.CalculateID()
}

// SaveContents returns the unsigned body.
func (c *Contract) SaveContents() string { return c.body }

// UpdateContents refreshes the body from the variant (or, for a generic
// contract, from its name, entity, conditions and nyms).
func (c *Contract) UpdateContents() error {
	var (
		body string
		err  error
	)
	if c.variant != nil {
		body, err = c.variant.UpdateContents(c)
		if err != nil {
			return err
		}
	} else {
		body = c.genericContents()
	}
	c.setBody(body)
	return nil
}

func (c *Contract) setBody(body string) {
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	c.body = EscapeDashes(body)
}

func (c *Contract) genericContents() string {
	t := NewTag("contract")
	if c.name != "" {
		t.Attr("name", c.name)
	}
	if c.version != "" {
		t.Attr("version", c.version)
	}
	c.WriteInnerContents(t)
	return t.String()
}
