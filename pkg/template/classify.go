package template

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vango-dev/refx/pkg/binding"
	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/source"
)

// Action is what the compiler does with an interpolated value.
type Action uint8

const (
	// ActionInline concatenates Decision.Text into the markup.
	ActionInline Action = iota
	// ActionBind records a pending binding.
	ActionBind
	// ActionError rejects the template.
	ActionError
)

// String returns the string representation of the Action.
func (a Action) String() string {
	switch a {
	case ActionInline:
		return "inline"
	case ActionBind:
		return "bind"
	case ActionError:
		return "error"
	default:
		return "unknown"
	}
}

// Decision is the result of classifying one interpolation site.
type Decision struct {
	Action Action

	// Kind, Name and Source describe the binding for ActionBind.
	Kind   binding.Kind
	Name   string
	Source source.Source

	// Text is the markup to concatenate for ActionInline.
	Text string

	// Inert marks an event-attribute value that could not be bound and was
	// concatenated as is.
	Inert bool

	// Code and Reason describe the failure for ActionError.
	Code   string
	Reason string
}

func fail(code, format string, args ...any) Decision {
	return Decision{Action: ActionError, Code: code, Reason: fmt.Sprintf(format, args...)}
}

func bind(kind binding.Kind, name string, src source.Source) Decision {
	return Decision{Action: ActionBind, Kind: kind, Name: name, Source: src}
}

func inline(text string) Decision {
	return Decision{Action: ActionInline, Text: text}
}

// Classify decides how value is interpolated at ctx. next is the literal
// fragment that follows the value. The precedence is: event attribute,
// attribute value, between attributes, element content and finally plain
// inlining. Classify is pure; it neither allocates markers nor mutates
// anything.
func Classify(ctx Context, value any, next string) Decision {
	dir, isDirective := value.(Directive)
	if isDirective && !dir.kind.Valid() {
		return fail("E103", "directive has no binding kind")
	}

	// 1. on<name>= with nothing written yet.
	if isEventAttribute(ctx) {
		if isDirective {
			return fail("E101", "%s directive in event attribute %q", dir.kind, ctx.Attr)
		}
		src, ok := source.ForEvent(value)
		if !ok {
			d := inline(source.Format(value))
			d.Inert = true
			return d
		}
		if !valueClosed(ctx, next, true) {
			return fail("E101", "event attribute %q must end right after the value", ctx.Attr)
		}
		return bind(binding.KindEvent, strings.ToLower(ctx.Attr[2:]), src)
	}

	reactive, src := reactiveSource(value)

	// 2. Inside an attribute value.
	if inAttributeValue(ctx) {
		if isDirective {
			return fail("E101", "%s directive inside attribute %q", dir.kind, ctx.Attr)
		}
		if reactive {
			if !valueClosed(ctx, next, false) {
				return fail("E101", "attribute %q is not closed by the next fragment", ctx.Attr)
			}
			return attributeBinding(ctx.Attr, src)
		}
		if _, ok := source.From(value); ok {
			return fail("E101", "callable value in attribute %q", ctx.Attr)
		}
		return inline(inlineText(value))
	}

	// 3. Between attributes.
	if ctx.State == StateBeforeAttrName || ctx.State == StateAfterAttrName {
		if !tagContinues(next) {
			if reactive || isDirective {
				return fail("E101", "value in <%s> must be followed by an attribute, '/' or '>'", ctx.Tag)
			}
			return inline(inlineText(value))
		}
		kind := binding.KindAttributeSet
		if isDirective {
			if dir.kind != binding.KindAttributeSet && dir.kind != binding.KindDatasetSet {
				return fail("E101", "%s directive between attributes of <%s>", dir.kind, ctx.Tag)
			}
			kind = dir.kind
			reactive, src = reactiveSource(dir.value)
			value = dir.value
		}
		if reactive {
			return bind(kind, "", src)
		}
		if isMapping(value) {
			text, err := inlineAttributes(value, kind == binding.KindDatasetSet)
			if err != nil {
				return fail("E101", "%v", err)
			}
			return inline(text)
		}
		if isDirective {
			return fail("E101", "%s directive needs a mapping, got %T", dir.kind, value)
		}
	}

	if ctx.State.InTag() {
		if reactive || isDirective {
			return fail("E101", "value cannot be bound in %s state of <%s>", ctx.State, ctx.Tag)
		}
		if _, ok := source.From(value); ok {
			return fail("E101", "callable value inside <%s>", ctx.Tag)
		}
		return inline(inlineText(value))
	}

	// 4 and 5. Element content.
	if ctx.State == StateText || ctx.State == StateRawText {
		if isDirective {
			if !dir.kind.Content() {
				return fail("E101", "%s directive in content position", dir.kind)
			}
			if ctx.Element == "" {
				return fail("E102", "%s directive outside any element", dir.kind)
			}
			if r, s := reactiveSource(dir.value); r {
				return bind(dir.kind, "", s)
			}
			if dir.kind == binding.KindInnerHTML {
				return inline(inlineText(dir.value))
			}
			return inline(dom.EscapeText(inlineText(dir.value)))
		}
		if reactive && startsTag(next) {
			switch {
			case ctx.Element == "":
				return fail("E102", "content binding at top level")
			case ctx.State == StateRawText:
				return bind(binding.KindTextContent, "", src)
			case ctx.EndsTag:
				return bind(binding.KindInnerHTML, "", src)
			case ctx.TrailingText:
				return bind(binding.KindInnerText, "", src)
			}
		}
	}

	// 6. Plain interpolation.
	if reactive {
		return fail("E101", "reactive value in %s position", ctx.State)
	}
	if isDirective {
		return fail("E101", "%s directive in %s position", dir.kind, ctx.State)
	}
	if _, ok := source.From(value); ok {
		return fail("E101", "callable value in %s position", ctx.State)
	}
	return inline(inlineText(value))
}

func reactiveSource(v any) (bool, source.Source) {
	src, ok := source.From(v)
	if !ok || !src.IsReactive() {
		return false, source.Source{}
	}
	return true, src
}

func isEventAttribute(ctx Context) bool {
	if len(ctx.Attr) <= 2 || !strings.HasPrefix(ctx.Attr, "on") || ctx.AttrValue != "" {
		return false
	}
	return ctx.State == StateBeforeAttrValue || ctx.State == StateAttrValueQuoted
}

func inAttributeValue(ctx Context) bool {
	switch ctx.State {
	case StateBeforeAttrValue, StateAttrValueQuoted, StateAttrValueUnquoted:
		return true
	}
	return false
}

// valueClosed reports whether next ends the attribute value the site is in.
// Event values must close immediately; other values may be followed by
// static text before the closing quote.
func valueClosed(ctx Context, next string, immediate bool) bool {
	if ctx.State == StateAttrValueQuoted {
		if immediate {
			return strings.HasPrefix(next, string(ctx.Quote))
		}
		return strings.IndexByte(next, ctx.Quote) >= 0
	}
	return next == "" || isSpace(next[0]) || next[0] == '>' || next[0] == '/'
}

// attributeBinding picks class, dataset or plain attribute by name.
func attributeBinding(name string, src source.Source) Decision {
	if name == "class" {
		return bind(binding.KindClass, "", src)
	}
	if key, ok := dom.DatasetKey(name); ok {
		return bind(binding.KindDataset, key, src)
	}
	return bind(binding.KindAttribute, name, src)
}

// tagContinues reports whether next continues the open tag with another
// attribute, '/' or '>'.
func tagContinues(next string) bool {
	t := strings.TrimLeft(next, " \t\n\r\f")
	if t == "" {
		return false
	}
	switch t[0] {
	case '=', '"', '\'', '<':
		return false
	}
	return true
}

func startsTag(next string) bool {
	return strings.HasPrefix(strings.TrimLeft(next, " \t\n\r\f"), "<")
}

// inlineText is the markup for a plain value. Slices are joined without a
// separator and nil is empty.
func inlineText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		var b strings.Builder
		for i := 0; i < rv.Len(); i++ {
			b.WriteString(inlineText(rv.Index(i).Interface()))
		}
		return b.String()
	}
	return source.Format(v)
}

func isMapping(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// inlineAttributes renders a static mapping as attributes, sorted by name.
// true renders a bare attribute; nil and false are skipped.
func inlineAttributes(v any, dataset bool) (string, error) {
	rv := reflect.ValueOf(v)
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		name := k
		if dataset {
			name = dom.DatasetAttributeName(k)
		}
		if !dom.ValidAttributeName(name) {
			return "", fmt.Errorf("invalid attribute name %q", name)
		}
		switch x := val.(type) {
		case nil:
			continue
		case bool:
			if !x {
				continue
			}
			if !dataset {
				b.WriteString(" " + name)
				continue
			}
		}
		b.WriteString(" " + name + `="` + dom.EscapeAttribute(source.Format(val)) + `"`)
	}
	return b.String(), nil
}
