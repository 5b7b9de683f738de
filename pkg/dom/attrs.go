package dom

import "strings"

// voidElements are elements that cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[strings.ToLower(tag)]
}

// rawTextElements hold text that is serialized without escaping.
var rawTextElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"xmp":      true,
	"iframe":   true,
	"noembed":  true,
	"noframes": true,
}

// IsRawTextElement returns true if the tag's text content is not escaped.
func IsRawTextElement(tag string) bool {
	return rawTextElements[strings.ToLower(tag)]
}

// booleanAttrs are attributes whose presence alone means true. Setting them
// to "false" still enables them, so they must be removed when falsy.
var booleanAttrs = map[string]bool{
	"allowfullscreen": true,
	"async":           true,
	"autofocus":       true,
	"autoplay":        true,
	"checked":         true,
	"controls":        true,
	"default":         true,
	"defer":           true,
	"disabled":        true,
	"formnovalidate":  true,
	"hidden":          true,
	"inert":           true,
	"ismap":           true,
	"itemscope":       true,
	"loop":            true,
	"multiple":        true,
	"muted":           true,
	"nomodule":        true,
	"novalidate":      true,
	"open":            true,
	"playsinline":     true,
	"readonly":        true,
	"required":        true,
	"reversed":        true,
	"selected":        true,
}

// IsBooleanAttribute returns true if name uses presence semantics.
func IsBooleanAttribute(name string) bool {
	return booleanAttrs[strings.ToLower(name)]
}

// enumeratedAttrs take the literal strings "true" and "false".
var enumeratedAttrs = map[string]bool{
	"autocapitalize":  true,
	"autocomplete":    true,
	"contenteditable": true,
	"draggable":       true,
	"spellcheck":      true,
	"translate":       true,
}

// IsEnumeratedAttribute returns true if name takes "true"/"false" string
// values rather than presence semantics. All aria-* attributes qualify.
func IsEnumeratedAttribute(name string) bool {
	name = strings.ToLower(name)
	return enumeratedAttrs[name] || strings.HasPrefix(name, "aria-")
}

// ValidAttributeName reports whether name can be set on an element.
func ValidAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c == 0x7f {
			return false
		}
		switch c {
		case '"', '\'', '>', '/', '=', '<':
			return false
		}
	}
	return true
}

// DatasetAttributeName converts a dataset key to its data-* attribute name.
// Camel case keys are hyphenated the way browsers do it: "userId" becomes
// "data-user-id". Keys that are already hyphenated pass through.
func DatasetAttributeName(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 8)
	b.WriteString("data-")
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('-')
			b.WriteByte(c + ('a' - 'A'))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// DatasetKey converts a data-* attribute name back to its camel case key.
// It returns false if name is not a data attribute.
func DatasetKey(name string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(name), "data-")
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.Grow(len(rest))
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '-' && i+1 < len(rest) && rest[i+1] >= 'a' && rest[i+1] <= 'z' {
			b.WriteByte(rest[i+1] - ('a' - 'A'))
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), true
}
