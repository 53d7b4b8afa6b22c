package contract

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"xdao.co/purse/fault"
)

// NodeType classifies an event in a structured token stream.
type NodeType int

const (
	NodeNone NodeType = iota
	NodeElement
	NodeElementEnd
	NodeText
)

func (t NodeType) String() string {
	switch t {
	case NodeElement:
		return "element"
	case NodeElementEnd:
		return "element-end"
	case NodeText:
		return "text"
	default:
		return "none"
	}
}

// NodeReader is a forward-only stream of element, end-element and text
// events in document order. Whitespace-only text, comments and processing
// instructions are not reported.
type NodeReader interface {
	// Read advances to the next event and reports whether there was one.
	Read() bool
	Type() NodeType
	// Name is the element name for NodeElement and NodeElementEnd events.
	Name() string
	// Attr returns the named attribute of the current element, or "".
	Attr(name string) string
	// Text is the character data of a NodeText event.
	Text() string
	// Err returns the first decoding error, if any.
	Err() error
}

// Outcome is a node handler's verdict on an element.
type Outcome int

const (
	// NodeUnknown means the handler did not recognise the element; it is
	// logged and skipped.
	NodeUnknown Outcome = iota
	// NodeHandled means the element (and anything the handler consumed after
	// it) was loaded.
	NodeHandled
)

type xmlReader struct {
	dec   *xml.Decoder
	typ   NodeType
	name  string
	attrs []xml.Attr
	text  string
	err   error
}

// NewXMLReader returns a NodeReader over an XML body.
func NewXMLReader(body string) NodeReader {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.Strict = true
	return &xmlReader{dec: dec}
}

func (r *xmlReader) Read() bool {
	if r.err != nil {
		return false
	}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = fault.Wrap(fault.KindParse, "PURSE-XML-001", "malformed contract body", err)
			}
			r.typ = NodeNone
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			r.typ, r.name, r.attrs, r.text = NodeElement, t.Name.Local, t.Attr, ""
			return true
		case xml.EndElement:
			r.typ, r.name, r.attrs, r.text = NodeElementEnd, t.Name.Local, nil, ""
			return true
		case xml.CharData:
			s := string(t)
			if strings.TrimSpace(s) == "" {
				continue
			}
			r.typ, r.name, r.attrs, r.text = NodeText, "", nil, s
			return true
		default:
			continue
		}
	}
}

func (r *xmlReader) Type() NodeType { return r.typ }
func (r *xmlReader) Name() string   { return r.name }
func (r *xmlReader) Text() string   { return r.text }
func (r *xmlReader) Err() error     { return r.err }

func (r *xmlReader) Attr(name string) string {
	for _, a := range r.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// ElementText consumes the stream up to the end of the current element and
// returns its text with surrounding whitespace trimmed. It fails if the
// element is empty or has child elements.
func ElementText(r NodeReader) (string, error) {
	return elementText(r, false)
}

// OptionalElementText is ElementText for elements that may be empty.
func OptionalElementText(r NodeReader) (string, error) {
	return elementText(r, true)
}

func elementText(r NodeReader, allowEmpty bool) (string, error) {
	if r.Type() != NodeElement {
		return "", fault.New(fault.KindParse, "PURSE-XML-010", "text requested outside an element")
	}
	name := r.Name()
	var sb strings.Builder
	for r.Read() {
		switch r.Type() {
		case NodeText:
			sb.WriteString(r.Text())
		case NodeElementEnd:
			if r.Name() != name {
				return "", fault.Newf(fault.KindParse, "PURSE-XML-011", "unexpected end of %q inside %q", r.Name(), name)
			}
			text := strings.TrimSpace(sb.String())
			if text == "" && !allowEmpty {
				return "", fault.Newf(fault.KindParse, "PURSE-XML-012", "element %q has no text", name)
			}
			return text, nil
		case NodeElement:
			return "", fault.Newf(fault.KindParse, "PURSE-XML-013", "element %q has child element %q where text was expected", name, r.Name())
		}
	}
	if err := r.Err(); err != nil {
		return "", err
	}
	return "", fault.Newf(fault.KindParse, "PURSE-XML-014", "unterminated element %q", name)
}

// ParseBool reads the "true"/"false" attribute encoding.
func ParseBool(s string) bool { return s == "true" }

// FormatBool writes the "true"/"false" attribute encoding.
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
