package preview

import (
	"slices"
	"strings"

	"github.com/vango-dev/refx/internal/errors"
)

// PlaceholderKind says how a placeholder's value is bound.
type PlaceholderKind int

const (
	// PlaceholderValue binds a named signal wherever it appears.
	PlaceholderValue PlaceholderKind = iota
	// PlaceholderEvent binds a recording event handler.
	PlaceholderEvent
	// PlaceholderText inlines literal text.
	PlaceholderText
	// PlaceholderHTML binds a named signal as innerHTML.
	PlaceholderHTML
	// PlaceholderAttrs binds a named signal as an attribute set.
	PlaceholderAttrs
	// PlaceholderData binds a named signal as a dataset set.
	PlaceholderData
)

var prefixes = map[string]PlaceholderKind{
	"fn":    PlaceholderEvent,
	"text":  PlaceholderText,
	"html":  PlaceholderHTML,
	"attrs": PlaceholderAttrs,
	"data":  PlaceholderData,
}

// String returns the placeholder prefix, or "value" for bare names.
func (k PlaceholderKind) String() string {
	for p, kind := range prefixes {
		if kind == k {
			return p
		}
	}
	return "value"
}

// Placeholder is one ${...} occurrence.
type Placeholder struct {
	Kind PlaceholderKind
	// Name is the signal or handler name, or the literal for text.
	Name string
	// Offset is the byte offset of "${" in the file.
	Offset int
}

// Template is a parsed template file. Literals has one more entry than
// Placeholders.
type Template struct {
	Path         string
	Source       string
	Literals     []string
	Placeholders []Placeholder
}

// Parse splits src into literals and placeholders. path is used in error
// locations only. "$${" escapes a literal "${".
func Parse(path, src string) (*Template, error) {
	t := &Template{Path: path, Source: src}

	var lit strings.Builder
	i := 0
	for i < len(src) {
		if strings.HasPrefix(src[i:], "$${") {
			lit.WriteString("${")
			i += 3
			continue
		}
		if !strings.HasPrefix(src[i:], "${") {
			lit.WriteByte(src[i])
			i++
			continue
		}

		end := strings.IndexByte(src[i+2:], '}')
		if end < 0 {
			return nil, errors.New("E191").
				WithDetail("unterminated placeholder").
				WithSourceOffset(path, src, i)
		}
		body := src[i+2 : i+2+end]
		p, err := parsePlaceholder(body)
		if err != nil {
			return nil, err.WithSourceOffset(path, src, i)
		}
		p.Offset = i

		t.Literals = append(t.Literals, lit.String())
		t.Placeholders = append(t.Placeholders, p)
		lit.Reset()
		i += 2 + end + 1
	}
	t.Literals = append(t.Literals, lit.String())
	return t, nil
}

func parsePlaceholder(body string) (Placeholder, *errors.RefxError) {
	prefix, name, found := strings.Cut(body, ":")
	if !found {
		name = strings.TrimSpace(body)
		if name == "" {
			return Placeholder{}, errors.New("E191").WithDetail("empty placeholder name")
		}
		return Placeholder{Kind: PlaceholderValue, Name: name}, nil
	}

	kind, ok := prefixes[strings.TrimSpace(prefix)]
	if !ok {
		return Placeholder{}, errors.New("E191").
			WithDetailf("unknown placeholder prefix %q", prefix).
			WithSuggestion("Use one of fn, text, html, attrs or data.")
	}
	if kind != PlaceholderText {
		name = strings.TrimSpace(name)
	}
	if name == "" && kind != PlaceholderText {
		return Placeholder{}, errors.New("E191").
			WithDetailf("empty name after %q", prefix+":")
	}
	return Placeholder{Kind: kind, Name: name}, nil
}

// Names returns the distinct signal names the template binds, sorted.
func (t *Template) Names() []string {
	var out []string
	for _, p := range t.Placeholders {
		switch p.Kind {
		case PlaceholderText, PlaceholderEvent:
			continue
		}
		if !slices.Contains(out, p.Name) {
			out = append(out, p.Name)
		}
	}
	slices.Sort(out)
	return out
}

// Handlers returns the distinct handler names, sorted.
func (t *Template) Handlers() []string {
	var out []string
	for _, p := range t.Placeholders {
		if p.Kind == PlaceholderEvent && !slices.Contains(out, p.Name) {
			out = append(out, p.Name)
		}
	}
	slices.Sort(out)
	return out
}
