package memctx

import (
	"strconv"
	"strings"
)

// attr is one name/value attribute pair. Attribute order is fixed by
// the caller so two serializations of the same input are byte-equal.
type attr struct {
	name  string
	value string
}

// escapeText escapes the characters XML reserves inside text content.
// Quotes are deliberately left alone so JSON-stringified metadata
// survives verbatim.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// escapeAttr escapes attribute values, which additionally need quotes
// escaped because they are double-quote delimited.
func escapeAttr(s string) string {
	return strings.ReplaceAll(escapeText(s), `"`, "&quot;")
}

// xmlBuilder accumulates an XML document with two-space indentation.
type xmlBuilder struct {
	b     strings.Builder
	depth int
}

func (x *xmlBuilder) indent() {
	for i := 0; i < x.depth; i++ {
		x.b.WriteString("  ")
	}
}

func (x *xmlBuilder) openTag(name string, attrs []attr, selfClose bool) {
	x.indent()
	x.b.WriteByte('<')
	x.b.WriteString(name)
	for _, a := range attrs {
		x.b.WriteByte(' ')
		x.b.WriteString(a.name)
		x.b.WriteString(`="`)
		x.b.WriteString(escapeAttr(a.value))
		x.b.WriteByte('"')
	}
	if selfClose {
		x.b.WriteString("/>\n")
		return
	}
	x.b.WriteString(">\n")
	x.depth++
}

func (x *xmlBuilder) closeTag(name string) {
	x.depth--
	x.indent()
	x.b.WriteString("</")
	x.b.WriteString(name)
	x.b.WriteString(">\n")
}

// textElement writes a one-line element with escaped text content.
func (x *xmlBuilder) textElement(name, text string) {
	x.indent()
	x.b.WriteByte('<')
	x.b.WriteString(name)
	x.b.WriteByte('>')
	x.b.WriteString(escapeText(text))
	x.b.WriteString("</")
	x.b.WriteString(name)
	x.b.WriteString(">\n")
}

// optionalTextElement writes the element only when the text is non-empty.
func (x *xmlBuilder) optionalTextElement(name, text string) {
	if text == "" {
		return
	}
	x.textElement(name, text)
}

func (x *xmlBuilder) String() string {
	return strings.TrimRight(x.b.String(), "\n")
}

// formatSimilarity renders a similarity score with exactly three
// decimal places.
func formatSimilarity(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// optionalAttr appends the attribute only when the value is non-empty.
func optionalAttr(attrs []attr, name, value string) []attr {
	if value == "" {
		return attrs
	}
	return append(attrs, attr{name, value})
}
