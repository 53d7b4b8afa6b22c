package contract

import (
	"strings"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

type tagAttr struct {
	name  string
	value string
}

// Tag builds one element of a contract body. Attributes keep insertion order
// so rendered bodies are deterministic.
type Tag struct {
	name     string
	attrs    []tagAttr
	text     string
	children []*Tag
}

// NewTag returns an empty element named name.
func NewTag(name string) *Tag { return &Tag{name: name} }

// NewTextTag returns an element whose content is text.
func NewTextTag(name, text string) *Tag { return &Tag{name: name, text: text} }

// Attr appends an attribute and returns t for chaining.
func (t *Tag) Attr(name, value string) *Tag {
	t.attrs = append(t.attrs, tagAttr{name: name, value: value})
	return t
}

// Add appends a child element.
func (t *Tag) Add(child *Tag) *Tag {
	t.children = append(t.children, child)
	return t
}

// AddText appends a child element holding text.
func (t *Tag) AddText(name, text string) *Tag {
	return t.Add(NewTextTag(name, text))
}

// String renders the element. Empty elements self-close; text and child
// elements sit on their own lines. The result always ends with a newline.
func (t *Tag) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Tag) write(sb *strings.Builder) {
	sb.WriteString("<")
	sb.WriteString(t.name)
	for _, a := range t.attrs {
		sb.WriteString("\n ")
		sb.WriteString(a.name)
		sb.WriteString(`="`)
		sb.WriteString(attrEscaper.Replace(a.value))
		sb.WriteString(`"`)
	}
	if t.text == "" && len(t.children) == 0 {
		sb.WriteString(" />\n")
		return
	}
	sb.WriteString(">\n")
	if t.text != "" {
		sb.WriteString(textEscaper.Replace(strings.TrimRight(t.text, "\n")))
		sb.WriteString("\n")
	}
	for _, c := range t.children {
		sb.WriteString("\n")
		c.write(sb)
	}
	if len(t.children) > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("</")
	sb.WriteString(t.name)
	sb.WriteString(">\n")
}

// EscapeDashes prefixes "- " to every line that begins with a dash so the
// body can sit between bookends. Lines already escaped are left alone.
func EscapeDashes(body string) string {
	if !strings.Contains(body, "-") {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "-") && !strings.HasPrefix(l, "- -") {
			lines[i] = "- " + l
		}
	}
	return strings.Join(lines, "\n")
}

// UnescapeDashes reverses EscapeDashes.
func UnescapeDashes(body string) string {
	if !strings.Contains(body, "- -") {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "- -") {
			lines[i] = l[2:]
		}
	}
	return strings.Join(lines, "\n")
}
