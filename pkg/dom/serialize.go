package dom

import "strings"

// writeNode serializes n. parentTag selects raw text handling for the
// children of script, style and similar elements.
func writeNode(b *strings.Builder, n *Node, parentTag string) {
	switch n.typ {
	case TextNode:
		if IsRawTextElement(parentTag) {
			b.WriteString(n.data)
			return
		}
		b.WriteString(escapeHTML(n.data))
	case CommentNode:
		b.WriteString("<!--")
		b.WriteString(n.data)
		b.WriteString("-->")
	case DocumentNode:
		b.WriteString("<!DOCTYPE html>")
		for _, c := range n.children {
			writeNode(b, c, "")
		}
	case ElementNode:
		writeElement(b, n)
	}
}

func writeElement(b *strings.Builder, n *Node) {
	b.WriteByte('<')
	b.WriteString(n.tag)
	for _, a := range n.attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		// Boolean attributes render as just the name.
		if a.Value == "" && IsBooleanAttribute(a.Name) {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if IsVoidElement(n.tag) {
		return
	}
	for _, c := range n.children {
		writeNode(b, c, n.tag)
	}
	b.WriteString("</")
	b.WriteString(n.tag)
	b.WriteByte('>')
}

// escapeHTML escapes text for safe inclusion in HTML content.
func escapeHTML(s string) string {
	if !strings.ContainsAny(s, "&<>") {
		return s
	}
	var buf strings.Builder
	buf.Grow(len(s) + 8)

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// escapeAttr escapes text for safe inclusion in a double-quoted attribute
// value. Whitespace that could break attribute parsing is encoded too.
func escapeAttr(s string) string {
	if !strings.ContainsAny(s, "&<>\"'\n\r\t") {
		return s
	}
	var buf strings.Builder
	buf.Grow(len(s) + 8)

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n':
			buf.WriteString("&#10;")
		case '\r':
			buf.WriteString("&#13;")
		case '\t':
			buf.WriteString("&#9;")
		default:
			buf.WriteRune(r)
		}
	}

	return buf.String()
}

// EscapeText returns s escaped for use as element content.
func EscapeText(s string) string { return escapeHTML(s) }

// EscapeAttribute returns s escaped for use inside a double-quoted attribute.
func EscapeAttribute(s string) string { return escapeAttr(s) }
