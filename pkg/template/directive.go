package template

import (
	"github.com/vango-dev/refx/pkg/binding"
)

// Directive forces the binding kind of a value instead of inferring it from
// the surrounding markup.
type Directive struct {
	kind  binding.Kind
	value any
}

// Kind returns the forced binding kind.
func (d Directive) Kind() binding.Kind { return d.kind }

// Value returns the wrapped value.
func (d Directive) Value() any { return d.value }

// AsText binds v as the element's textContent. A plain value is inlined as
// escaped text.
func AsText(v any) Directive { return Directive{kind: binding.KindTextContent, value: v} }

// AsInnerText binds v as the element's rendered text.
func AsInnerText(v any) Directive { return Directive{kind: binding.KindInnerText, value: v} }

// AsHTML binds v as the element's innerHTML. A plain value is inlined as
// raw markup.
func AsHTML(v any) Directive { return Directive{kind: binding.KindInnerHTML, value: v} }

// AsAttrs binds a mapping of attributes in tag position.
func AsAttrs(v any) Directive { return Directive{kind: binding.KindAttributeSet, value: v} }

// AsDataset binds a mapping of data-* keys in tag position.
func AsDataset(v any) Directive { return Directive{kind: binding.KindDatasetSet, value: v} }
