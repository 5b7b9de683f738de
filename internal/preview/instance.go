package preview

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/vango-dev/refx"
	"github.com/vango-dev/refx/pkg/dom"
	"github.com/vango-dev/refx/pkg/source"
	"github.com/vango-dev/refx/pkg/template"
)

// EventRecord describes one handler invocation.
type EventRecord struct {
	Handler string `json:"handler" msgpack:"handler"`
	Type    string `json:"type" msgpack:"type"`
	Target  string `json:"target" msgpack:"target"`
}

// Instance is a template bound into a runtime. It is not safe for
// concurrent use; Server serializes access.
type Instance struct {
	rt      *refx.Runtime
	tpl     *Template
	signals map[string]*source.Signal[any]
	result  *template.Result

	mu      sync.Mutex
	events  []EventRecord
	onEvent func(EventRecord)
}

// Bind compiles tpl with one signal per name, seeded from initial (names
// without a value start as nil), and mounts the markup in the runtime's body.
func Bind(rt *refx.Runtime, tpl *Template, initial map[string]string) (*Instance, error) {
	inst := &Instance{
		rt:      rt,
		tpl:     tpl,
		signals: make(map[string]*source.Signal[any]),
	}
	for _, name := range tpl.Names() {
		var v any
		if s, ok := initial[name]; ok {
			v = s
		}
		inst.signals[name] = source.NewSignal(v)
	}

	values := make([]any, len(tpl.Placeholders))
	for i, p := range tpl.Placeholders {
		values[i] = inst.value(p)
	}

	res, err := rt.CompileResult(tpl.Literals, values)
	if err != nil {
		return nil, err
	}
	inst.result = res
	if err := rt.Mount(nil, res.Markup); err != nil {
		return nil, err
	}
	rt.RunUntilIdle()
	return inst, nil
}

func (inst *Instance) value(p Placeholder) any {
	switch p.Kind {
	case PlaceholderText:
		return p.Name
	case PlaceholderEvent:
		name := p.Name
		return func(ev *dom.Event) any {
			inst.record(EventRecord{Handler: name, Type: ev.Type, Target: describe(ev.Target())})
			return true
		}
	case PlaceholderHTML:
		return template.AsHTML(inst.signals[p.Name])
	case PlaceholderAttrs:
		return template.AsAttrs(source.Map(source.Push(inst.signals[p.Name]), mapping))
	case PlaceholderData:
		return template.AsDataset(source.Map(source.Push(inst.signals[p.Name]), mapping))
	}
	return inst.signals[p.Name]
}

// mapping turns "k=v;k2=v2" into a map for attribute and dataset sets.
// Values that are already maps pass through.
func mapping(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	out := map[string]any{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, val, found := strings.Cut(pair, "=")
		if !found {
			out[k] = true
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}

func (inst *Instance) record(rec EventRecord) {
	inst.mu.Lock()
	inst.events = append(inst.events, rec)
	fn := inst.onEvent
	inst.mu.Unlock()
	if fn != nil {
		fn(rec)
	}
}

// OnEvent registers fn to observe handler invocations.
func (inst *Instance) OnEvent(fn func(EventRecord)) {
	inst.mu.Lock()
	inst.onEvent = fn
	inst.mu.Unlock()
}

// Events returns the handler invocations so far.
func (inst *Instance) Events() []EventRecord {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return slices.Clone(inst.events)
}

// Result returns the compile result.
func (inst *Instance) Result() *template.Result { return inst.result }

// Runtime returns the runtime the instance is mounted in.
func (inst *Instance) Runtime() *refx.Runtime { return inst.rt }

// Set updates the named signal and runs the loop to idle.
func (inst *Instance) Set(name string, value any) error {
	sig, ok := inst.signals[name]
	if !ok {
		return fmt.Errorf("preview: unknown source %q", name)
	}
	err := sig.Set(value)
	inst.rt.RunUntilIdle()
	return err
}

// Dispatch fires event at the element addressed by path and runs the loop
// to idle. It reports whether a handler marked the event handled.
func (inst *Instance) Dispatch(event, path string) (bool, error) {
	if event == "" {
		event = "click"
	}
	target, err := Resolve(inst.rt.Document(), path)
	if err != nil {
		return false, err
	}
	ev := dom.NewEvent(event, inst.rt.Bubbles(event))
	target.DispatchEvent(ev)
	inst.rt.RunUntilIdle()
	return ev.Handled(), nil
}

// HTML returns the body's current markup.
func (inst *Instance) HTML() string {
	return inst.rt.Document().Body().InnerHTML()
}

// Resolve finds the element addressed by path: "#id", or slash-separated
// element indexes from the body ("0/2"). An empty path is the body.
func Resolve(doc *dom.Document, path string) (*dom.Node, error) {
	path = strings.TrimSpace(path)
	if id, ok := strings.CutPrefix(path, "#"); ok {
		n := doc.ElementByID(id)
		if n == nil {
			return nil, fmt.Errorf("preview: no element with id %q", id)
		}
		return n, nil
	}

	n := doc.Body()
	if path == "" {
		return n, nil
	}
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("preview: bad path segment %q", seg)
		}
		var elems []*dom.Node
		for _, c := range n.Children() {
			if c.IsElement() {
				elems = append(elems, c)
			}
		}
		if i >= len(elems) {
			return nil, fmt.Errorf("preview: path %q: index %d out of range", path, i)
		}
		n = elems[i]
	}
	return n, nil
}

func describe(n *dom.Node) string {
	if n == nil {
		return ""
	}
	if id, ok := n.GetAttribute("id"); ok && id != "" {
		return n.Tag() + "#" + id
	}
	return n.Tag()
}
