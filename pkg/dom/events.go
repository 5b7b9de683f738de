package dom

import "slices"

// Phase is the dispatch phase of an event.
type Phase uint8

const (
	PhaseNone     Phase = iota
	PhaseAtTarget       // Listeners on the target itself
	PhaseBubbling       // Listeners on ancestors
)

// Event is a DOM event.
type Event struct {
	// Type is the event name without the "on" prefix (e.g. "click").
	Type string

	// Bubbles reports whether the event propagates to ancestors.
	Bubbles bool

	// Detail carries an arbitrary payload for synthetic events.
	Detail any

	target           *Node
	currentTarget    *Node
	phase            Phase
	stopped          bool
	stoppedImmediate bool
	defaultPrevented bool
	handled          bool
}

// NewEvent creates an event of the given type.
func NewEvent(typ string, bubbles bool) *Event {
	return &Event{Type: typ, Bubbles: bubbles}
}

// Target returns the node the event was dispatched on.
func (e *Event) Target() *Node { return e.target }

// CurrentTarget returns the node whose listeners are running.
func (e *Event) CurrentTarget() *Node { return e.currentTarget }

// Phase returns the current dispatch phase.
func (e *Event) Phase() Phase { return e.phase }

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation also skips remaining listeners on the current node.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedImmediate = true
}

// PreventDefault marks the default action as cancelled.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// MarkHandled records that a handler consumed the event.
func (e *Event) MarkHandled() { e.handled = true }

// Handled reports whether a handler consumed the event.
func (e *Event) Handled() bool { return e.handled }

// Listener handles an event.
type Listener func(ev *Event)

type listener struct {
	fn Listener
}

// AddEventListener registers fn for events of typ on n and returns a function
// that removes it.
func (n *Node) AddEventListener(typ string, fn Listener) (remove func()) {
	if fn == nil {
		return func() {}
	}
	if n.listeners == nil {
		n.listeners = make(map[string][]*listener)
	}
	l := &listener{fn: fn}
	n.listeners[typ] = append(n.listeners[typ], l)
	return func() {
		n.listeners[typ] = slices.DeleteFunc(n.listeners[typ], func(x *listener) bool {
			return x == l
		})
		if len(n.listeners[typ]) == 0 {
			delete(n.listeners, typ)
		}
	}
}

// ListenerCount returns how many listeners are registered for typ on n.
func (n *Node) ListenerCount(typ string) int {
	return len(n.listeners[typ])
}

// ListenerTypes returns the event types with at least one listener on n.
func (n *Node) ListenerTypes() []string {
	out := make([]string, 0, len(n.listeners))
	for typ := range n.listeners {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// DispatchEvent delivers ev to n's listeners and, if it bubbles, to every
// ancestor up to the document node. It returns false if a listener called
// PreventDefault.
func (n *Node) DispatchEvent(ev *Event) bool {
	ev.target = n
	ev.stopped = false
	ev.stoppedImmediate = false

	ev.phase = PhaseAtTarget
	n.invoke(ev)

	if ev.Bubbles {
		ev.phase = PhaseBubbling
		for p := n.parent; p != nil && !ev.stopped; p = p.parent {
			p.invoke(ev)
		}
	}

	ev.phase = PhaseNone
	ev.currentTarget = nil
	return !ev.defaultPrevented
}

func (n *Node) invoke(ev *Event) {
	ls := n.listeners[ev.Type]
	if len(ls) == 0 {
		return
	}
	ev.currentTarget = n
	// Copy so listeners may add or remove listeners while running.
	for _, l := range slices.Clone(ls) {
		l.fn(ev)
		if ev.stoppedImmediate {
			return
		}
	}
}

// Click dispatches a bubbling click event on n.
func (n *Node) Click() *Event {
	ev := NewEvent("click", true)
	n.DispatchEvent(ev)
	return ev
}
