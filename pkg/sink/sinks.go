package sink

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/source"
)

// Attribute sets the named attribute. nil removes it. Boolean attributes use
// presence semantics and enumerated attributes spell booleans as
// "true"/"false".
func Attribute(el *dom.Node, name string) Setter {
	return func(v any) error {
		return setAttribute(el, name, v)
	}
}

func setAttribute(el *dom.Node, name string, v any) error {
	if v == nil {
		el.RemoveAttribute(name)
		return nil
	}
	if dom.IsBooleanAttribute(name) {
		if !source.Truthy(v) {
			el.RemoveAttribute(name)
			return nil
		}
		return el.SetAttribute(name, "")
	}
	if b, ok := v.(bool); ok && dom.IsEnumeratedAttribute(name) {
		if b {
			return el.SetAttribute(name, "true")
		}
		return el.SetAttribute(name, "false")
	}
	return el.SetAttribute(name, formatValue(v))
}

// AttributeSet applies a mapping of attribute names to values. Each entry
// follows the Attribute rules.
func AttributeSet(el *dom.Node, _ string) Setter {
	return func(v any) error {
		entries, err := mapping(v)
		if err != nil {
			return err
		}
		var errs []error
		for _, e := range entries {
			if err := setAttribute(el, e.key, e.value); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Class adds a string's class tokens, or toggles each key of a mapping by
// the truthiness of its value. A string slice adds every element.
func Class(el *dom.Node, _ string) Setter {
	return func(v any) error {
		switch x := v.(type) {
		case nil:
			return nil
		case string:
			return el.AddClass(x)
		case []string:
			return el.AddClass(x...)
		}
		entries, err := mapping(v)
		if err != nil {
			return el.AddClass(formatValue(v))
		}
		for _, e := range entries {
			if err := el.ToggleClass(e.key, source.Truthy(e.value)); err != nil {
				return err
			}
		}
		return nil
	}
}

// Dataset sets one data-* key. Falsy values remove it. A mapping toggles
// each of its keys the way DatasetSet does.
func Dataset(el *dom.Node, key string) Setter {
	return func(v any) error {
		return setDataset(el, key, v)
	}
}

func setDataset(el *dom.Node, key string, v any) error {
	if _, plain := v.(string); !plain && v != nil {
		if entries, err := mapping(v); err == nil {
			return applyDataset(el, entries)
		}
	}
	if !source.Truthy(v) {
		el.RemoveDataset(key)
		return nil
	}
	return el.SetDataset(key, formatValue(v))
}

// DatasetSet applies a mapping of dataset keys. Falsy values remove the key.
func DatasetSet(el *dom.Node, _ string) Setter {
	return func(v any) error {
		entries, err := mapping(v)
		if err != nil {
			return err
		}
		return applyDataset(el, entries)
	}
}

func applyDataset(el *dom.Node, entries []entry) error {
	var errs []error
	for _, e := range entries {
		if !source.Truthy(e.value) {
			el.RemoveDataset(e.key)
			continue
		}
		if err := el.SetDataset(e.key, formatValue(e.value)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InnerHTML replaces the element's children with the parsed markup.
func InnerHTML(el *dom.Node, _ string) Setter {
	return func(v any) error {
		return el.SetInnerHTML(formatValue(v))
	}
}

// Text replaces the element's children with a single text node.
func Text(el *dom.Node, _ string) Setter {
	return func(v any) error {
		return el.SetTextContent(formatValue(v))
	}
}

type entry struct {
	key   string
	value any
}

// mapping flattens a string-keyed map into entries sorted by key so repeated
// emissions mutate the DOM in a stable order.
func mapping(v any) ([]entry, error) {
	var out []entry
	switch m := v.(type) {
	case map[string]any:
		for k, val := range m {
			out = append(out, entry{k, val})
		}
	case map[string]string:
		for k, val := range m {
			out = append(out, entry{k, val})
		}
	case map[string]bool:
		for k, val := range m {
			out = append(out, entry{k, val})
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("sink: expected a string-keyed map, got %T", v)
		}
		iter := rv.MapRange()
		for iter.Next() {
			out = append(out, entry{iter.Key().String(), iter.Value().Interface()})
		}
	}
	slices.SortFunc(out, func(a, b entry) int { return strings.Compare(a.key, b.key) })
	return out, nil
}

func formatValue(v any) string {
	return source.Format(v)
}
