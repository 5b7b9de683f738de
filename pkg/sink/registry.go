// Package sink translates binding kinds into DOM mutations.
//
// A Factory binds a target element (and, for keyed kinds, an attribute name
// or dataset key) to a Setter. Setters return errors from the DOM, such as an
// invalid attribute name, to whoever drove the emission.
package sink

import (
	"fmt"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/vango-dev/refx/pkg/binding"
	"github.com/vango-dev/refx/pkg/dom"
)

// Setter applies one emitted value to the DOM.
type Setter func(v any) error

// Factory builds the setter for an element. name is the attribute name or
// dataset key for keyed kinds and empty otherwise.
type Factory func(el *dom.Node, name string) Setter

// Registry maps binding kinds to sink factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[binding.Kind]Factory
	sanitizer *bluemonday.Policy
}

// Option configures a Registry.
type Option func(*Registry)

// WithSanitizer sanitizes innerHTML emissions with p before parsing.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(r *Registry) {
		r.sanitizer = p
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{factories: make(map[binding.Kind]Factory)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default creates a registry with every built-in sink. Events have no sink;
// the delegator handles them.
func Default(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.Register(binding.KindAttribute, Attribute)
	r.Register(binding.KindAttributeSet, AttributeSet)
	r.Register(binding.KindClass, Class)
	r.Register(binding.KindDataset, Dataset)
	r.Register(binding.KindDatasetSet, DatasetSet)
	r.Register(binding.KindInnerHTML, r.innerHTML)
	r.Register(binding.KindInnerText, Text)
	r.Register(binding.KindTextContent, Text)
	return r
}

// Register installs or replaces the factory for kind.
func (r *Registry) Register(kind binding.Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Lookup returns the factory for kind.
func (r *Registry) Lookup(kind binding.Kind) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

// Bind looks up kind and binds it to el.
func (r *Registry) Bind(kind binding.Kind, el *dom.Node, name string) (Setter, error) {
	f, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("sink: no sink registered for %s", kind)
	}
	return f(el, name), nil
}

// Sanitizing reports whether innerHTML emissions are sanitized.
func (r *Registry) Sanitizing() bool { return r.sanitizer != nil }

func (r *Registry) innerHTML(el *dom.Node, _ string) Setter {
	return func(v any) error {
		markup := formatValue(v)
		if r.sanitizer != nil {
			markup = r.sanitizer.Sanitize(markup)
		}
		return el.SetInnerHTML(markup)
	}
}
