package contract

import (
	"bufio"
	"strings"

	"go.uber.org/zap"

	"xdao.co/purse/armor"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
)

const metaLineLen = len("Meta:    SNMS")

type parsedText struct {
	hashType string
	body     string
	sigs     []Signature
}

// isBookend reports whether line opens with four dashes and contains word.
func isBookend(line, word string) bool {
	return len(line) > 3 && strings.HasPrefix(line, "----") && strings.Contains(line, word)
}

// TypeOf returns the contract type named by the opening bookend of text,
// which may be armored.
func TypeOf(text string) (string, error) {
	_, first, err := armor.DearmorAndTrim(text)
	if err != nil {
		return "", err
	}
	const prefix, suffix = "-----BEGIN SIGNED ", "-----"
	if !strings.HasPrefix(first, prefix) || !strings.HasSuffix(first, suffix) || len(first) <= len(prefix)+len(suffix) {
		return "", fault.Newf(fault.KindParse, "PURSE-PARSE-003", "no contract bookend in %q", first)
	}
	return first[len(prefix) : len(first)-len(suffix)], nil
}

// parseRaw splits trimmed canonical text into body and signatures.
func parseRaw(raw string) (*parsedText, error) {
	out := &parsedText{}
	var (
		sig          *Signature
		sigMode      bool
		contentMode  bool
		enteredBody  bool
		skipNextLine bool
		body         strings.Builder
		sigText      strings.Builder
	)

	flushSig := func() {
		if sig != nil {
			sig.Value = sigText.String()
			out.sigs = append(out.sigs, *sig)
		}
		sig = nil
		sigText.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if skipNextLine {
			skipNextLine = false
			continue
		}

		switch {
		case len(line) < 2:
			if sigMode {
				continue
			}

		case line[0] == '-':
			if sigMode {
				flushSig()
				sigMode = false
				continue
			}
			if !enteredBody {
				if isBookend(line, "BEGIN") {
					enteredBody = true
					contentMode = true
				}
				continue
			}
			if isBookend(line, "SIGNATURE") {
				sigMode = true
				contentMode = false
				sig = &Signature{}
				continue
			}
			if !strings.HasPrefix(line, "- -") {
				return nil, fault.New(fault.KindParse, "PURSE-PARSE-010", "a leading dash must be escaped as \"- -\"")
			}

		case enteredBody && sigMode:
			switch {
			case strings.HasPrefix(line, "Version:"), strings.HasPrefix(line, "Comment:"):
				continue
			case strings.HasPrefix(line, "Meta:"):
				if len(line) != metaLineLen {
					return nil, fault.New(fault.KindParse, "PURSE-PARSE-020", "signature Meta line has the wrong length")
				}
				var m keys.Metadata
				if err := m.Set(line[9], line[10], line[11], line[12]); err != nil {
					return nil, fault.Wrap(fault.KindParse, "PURSE-PARSE-021", "invalid signature metadata", err)
				}
				sig.Meta = m
				continue
			}

		case enteredBody && contentMode:
			if strings.HasPrefix(line, "Hash: ") {
				out.hashType = strings.ToUpper(strings.TrimSpace(line[len("Hash: "):]))
				skipNextLine = true
				continue
			}
		}

		if sigMode {
			sigText.WriteString(line)
			sigText.WriteString("\n")
		} else if contentMode {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fault.Wrap(fault.KindParse, "PURSE-PARSE-001", "read failure", err)
	}

	switch {
	case !enteredBody:
		return nil, fault.New(fault.KindParse, "PURSE-PARSE-030", "found no BEGIN for signed content")
	case contentMode:
		return nil, fault.New(fault.KindParse, "PURSE-PARSE-031", "EOF while reading content")
	case sigMode:
		return nil, fault.New(fault.KindParse, "PURSE-PARSE-032", "EOF while reading signature")
	}
	out.body = body.String()
	return out, nil
}

// LoadFromString replaces the contract with the parsed form of text, which
// may be armored. On failure the contract is left released.
func (c *Contract) LoadFromString(text string) error {
	c.Release()
	body, _, err := armor.DearmorAndTrim(text)
	if err != nil {
		return err
	}
	if err := c.parseRawText(body); err != nil {
		c.Release()
		return err
	}
	return nil
}

func (c *Contract) parseRawText(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fault.New(fault.KindParse, "PURSE-PARSE-002", "empty contract text")
	}
	p, err := parseRaw(raw)
	if err != nil {
		return err
	}
	c.raw = raw
	c.body = p.body
	c.sigs = p.sigs
	if p.hashType != "" {
		c.hashType = p.hashType
	}
	if err := c.loadBody(); err != nil {
		return err
	}
	return c.CalculateID()
}

// loadBody feeds the body to the variant and the generic handler.
func (c *Contract) loadBody() error {
	if strings.TrimSpace(c.body) == "" {
		return fault.New(fault.KindParse, "PURSE-PARSE-040", "contract has no body")
	}
	r := NewXMLReader(UnescapeDashes(c.body))
	for r.Read() {
		if r.Type() != NodeElement {
			continue
		}
		if c.variant != nil {
			outcome, err := c.variant.HandleNode(c, r)
			if err != nil {
				return err
			}
			if outcome == NodeHandled {
				continue
			}
		}
		outcome, err := c.handleNode(r)
		if err != nil {
			return err
		}
		if outcome == NodeUnknown {
			c.log.Debug("skipping unknown element", zap.String("type", c.typ), zap.String("element", r.Name()))
		}
	}
	return r.Err()
}
