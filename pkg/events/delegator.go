// Package events implements single-listener event delegation.
//
// A Delegator installs at most one listener per event name on its root node.
// When a bubbling event reaches the root, the delegator walks from the
// event's target up through its ancestors and runs the handlers of the
// nearest node that registered one for that event name. Non-bubbling events
// never reach the root, so those handlers get a direct listener instead.
package events

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/vango-dev/refx/pkg/dom"
)

// Handler is one event binding on a node.
type Handler struct {
	// Event is the event name without the "on" prefix.
	Event string

	// Invoke runs the binding. A true result marks the event handled.
	Invoke func(ev *dom.Event) (bool, error)

	// Sequence reports that Invoke advances a lazy sequence.
	Sequence bool
}

// Option configures a Delegator.
type Option func(*Delegator)

// WithLogger sets the delegator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Delegator) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithErrorHandler receives errors returned by handlers. Without one they
// are logged at warn level.
func WithErrorHandler(fn func(node *dom.Node, h Handler, err error)) Option {
	return func(d *Delegator) {
		d.onError = fn
	}
}

// WithDispatchHook is called after each delegated or direct dispatch that
// ran at least one handler.
func WithDispatchHook(fn func(event string, handled bool)) Option {
	return func(d *Delegator) {
		d.onDispatch = fn
	}
}

// Delegator owns the root listeners and the per-node handler table.
type Delegator struct {
	root *dom.Node

	mu        sync.Mutex
	installed map[string]func()
	handlers  map[dom.NodeID][]Handler
	direct    map[dom.NodeID][]func()

	logger     *slog.Logger
	onError    func(node *dom.Node, h Handler, err error)
	onDispatch func(event string, handled bool)
}

// New creates a delegator rooted at root, usually the document node.
func New(root *dom.Node, opts ...Option) *Delegator {
	d := &Delegator{
		root:      root,
		installed: make(map[string]func()),
		handlers:  make(map[dom.NodeID][]Handler),
		direct:    make(map[dom.NodeID][]func()),
		logger:    slog.Default().With("component", "events"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bind registers h for node. Bubbling handlers are delegated through the
// root listener for h.Event, which is installed on first use.
func (d *Delegator) Bind(node *dom.Node, h Handler, nonBubbling bool) {
	if node == nil || h.Invoke == nil || h.Event == "" {
		return
	}

	if nonBubbling {
		remove := node.AddEventListener(h.Event, func(ev *dom.Event) {
			handled := d.run(node, []Handler{h}, ev)
			if handled {
				ev.MarkHandled()
			}
			d.dispatched(ev.Type, handled)
		})
		d.mu.Lock()
		d.direct[node.ID()] = append(d.direct[node.ID()], remove)
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	d.handlers[node.ID()] = append(d.handlers[node.ID()], h)
	_, ok := d.installed[h.Event]
	d.mu.Unlock()

	if !ok {
		d.install(h.Event)
	}
}

func (d *Delegator) install(event string) {
	remove := d.root.AddEventListener(event, d.dispatch)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.installed[event]; ok {
		remove()
		return
	}
	d.installed[event] = remove
	d.logger.Debug("delegated listener installed", "event", event)
}

// dispatch is the root listener. It finds the nearest node on the target's
// ancestor chain with a handler for the event and runs all of them.
func (d *Delegator) dispatch(ev *dom.Event) {
	for n := ev.Target(); n != nil; n = n.Parent() {
		matched := d.matching(n.ID(), ev.Type)
		if len(matched) == 0 {
			continue
		}
		handled := d.run(n, matched, ev)
		if handled {
			ev.MarkHandled()
		}
		d.dispatched(ev.Type, handled)
		return
	}
}

func (d *Delegator) matching(id dom.NodeID, event string) []Handler {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Handler
	for _, h := range d.handlers[id] {
		if h.Event == event {
			out = append(out, h)
		}
	}
	return out
}

// run invokes every handler and ORs their results.
func (d *Delegator) run(node *dom.Node, hs []Handler, ev *dom.Event) bool {
	handled := false
	for _, h := range hs {
		ok, err := h.Invoke(ev)
		if err != nil {
			d.fail(node, h, err)
		}
		handled = handled || ok
	}
	return handled
}

func (d *Delegator) fail(node *dom.Node, h Handler, err error) {
	if d.onError != nil {
		d.onError(node, h, err)
		return
	}
	d.logger.Warn("event handler error",
		"event", h.Event,
		"node", node.ID(),
		"error", err)
}

func (d *Delegator) dispatched(event string, handled bool) {
	if d.onDispatch != nil {
		d.onDispatch(event, handled)
	}
}

// Release drops every handler and direct listener registered for id.
func (d *Delegator) Release(id dom.NodeID) int {
	d.mu.Lock()
	n := len(d.handlers[id])
	delete(d.handlers, id)
	removers := d.direct[id]
	delete(d.direct, id)
	d.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	return n + len(removers)
}

// Listeners returns the event names with a root listener installed.
func (d *Delegator) Listeners() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.installed))
	for name := range d.installed {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// ListenerCount returns the number of root listeners.
func (d *Delegator) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.installed)
}

// Handlers returns a copy of the delegated handlers registered for id.
func (d *Delegator) Handlers(id dom.NodeID) []Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.handlers[id])
}

// Nodes returns how many nodes hold delegated handlers or direct listeners.
func (d *Delegator) Nodes() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.handlers)
	for id := range d.direct {
		if _, ok := d.handlers[id]; !ok {
			n++
		}
	}
	return n
}

// Close removes the root listeners and every direct listener.
func (d *Delegator) Close() {
	d.mu.Lock()
	installed := d.installed
	direct := d.direct
	d.installed = make(map[string]func())
	d.handlers = make(map[dom.NodeID][]Handler)
	d.direct = make(map[dom.NodeID][]func())
	d.mu.Unlock()

	for _, remove := range installed {
		remove()
	}
	for _, removers := range direct {
		for _, remove := range removers {
			remove()
		}
	}
}
