package source

import (
	"errors"
	"iter"

	"github.com/vango-dev/refx/pkg/dom"
)

// Kind is the source shape discriminator.
type Kind uint8

const (
	KindInvalid  Kind = iota
	KindPush          // Subscribe-based producer
	KindDeferred      // Then-based single value
	KindCallable      // Event handler function
	KindSequence      // Pull-based lazy sequence
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindPush:
		return "push"
	case KindDeferred:
		return "deferred"
	case KindCallable:
		return "callable"
	case KindSequence:
		return "sequence"
	default:
		return "invalid"
	}
}

var (
	// ErrNotSubscribable is returned when a callable source is subscribed.
	ErrNotSubscribable = errors.New("source: callable sources cannot be subscribed")

	// ErrInvalidSource is returned for the zero Source.
	ErrInvalidSource = errors.New("source: invalid source")
)

// Observer receives a source's emissions. Any field may be nil.
type Observer struct {
	Next     func(v any) error
	Complete func()
	Error    func(err error)
}

func (o Observer) next(v any) error {
	if o.Next == nil {
		return nil
	}
	return o.Next(v)
}

func (o Observer) complete() {
	if o.Complete != nil {
		o.Complete()
	}
}

func (o Observer) fail(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// Disposer ends a subscription. Calling it more than once is safe.
type Disposer func()

// Subscribable is a push source.
type Subscribable interface {
	Subscribe(obs Observer) Disposer
}

// Thenable is a deferred single-value source.
type Thenable interface {
	Then(onValue func(v any), onError func(err error))
}

// Nexter accepts pushed values. Used as an event target, it receives the
// raw event object on each dispatch.
type Nexter interface {
	Next(v any) error
}

// Handler is a plain event callable. A truthy result marks the event handled.
type Handler func(ev *dom.Event) any

// Source is the normalized reactive value.
type Source struct {
	kind     Kind
	push     Subscribable
	deferred Thenable
	call     func(ev *dom.Event) (any, error)
	seq      iter.Seq[any]
	trigger  Subscribable
	onError  func(error)
}

// Push wraps a push source.
func Push(s Subscribable) Source {
	if s == nil {
		return Source{}
	}
	return Source{kind: KindPush, push: s}
}

// Defer wraps a deferred source.
func Defer(t Thenable) Source {
	if t == nil {
		return Source{}
	}
	return Source{kind: KindDeferred, deferred: t}
}

// Callable wraps an event handler.
func Callable(h Handler) Source {
	if h == nil {
		return Source{}
	}
	return Source{kind: KindCallable, call: func(ev *dom.Event) (any, error) {
		return h(ev), nil
	}}
}

// CallableE wraps an event handler that can fail.
func CallableE(fn func(ev *dom.Event) (any, error)) Source {
	if fn == nil {
		return Source{}
	}
	return Source{kind: KindCallable, call: fn}
}

// Lazy wraps a pull-based sequence. Bound to an event, each dispatch pulls
// one value. Bound to a sink, only the first value is pulled; use LazyOn to
// advance it.
func Lazy(seq iter.Seq[any]) Source {
	if seq == nil {
		return Source{}
	}
	return Source{kind: KindSequence, seq: seq}
}

// LazyOn wraps a pull-based sequence that pulls its next value each time
// trigger emits. A Subject makes a convenient trigger.
func LazyOn(seq iter.Seq[any], trigger Subscribable) Source {
	src := Lazy(seq)
	if src.kind == KindSequence {
		src.trigger = trigger
	}
	return src
}

// Kind returns the source shape.
func (s Source) Kind() Kind { return s.kind }

// IsValid reports whether s holds a shape.
func (s Source) IsValid() bool { return s.kind != KindInvalid }

// IsReactive reports whether s produces values over time (push, deferred
// or sequence), as opposed to an event callable.
func (s Source) IsReactive() bool {
	return s.kind == KindPush || s.kind == KindDeferred || s.kind == KindSequence
}

// IsLazySequence reports whether s is pull based.
func (s Source) IsLazySequence() bool { return s.kind == KindSequence }

// OnError returns a copy of s with a binding-level error callback. Source
// errors go to fn instead of the runtime's error policy.
func (s Source) OnError(fn func(error)) Source {
	s.onError = fn
	return s
}

// ErrorHandler returns the callback set by OnError, or nil.
func (s Source) ErrorHandler() func(error) { return s.onError }

// Sequence returns the underlying sequence of a KindSequence source.
func (s Source) Sequence() iter.Seq[any] { return s.seq }

// Invoke calls a KindCallable source with ev.
func (s Source) Invoke(ev *dom.Event) (any, error) {
	if s.kind != KindCallable {
		return nil, ErrInvalidSource
	}
	return s.call(ev)
}

// From maps v onto a Source by probing, in order: an existing Source, push,
// deferred, event callables and sequences. It reports false for plain
// values.
func From(v any) (Source, bool) {
	switch x := v.(type) {
	case nil:
		return Source{}, false
	case Source:
		return x, x.IsValid()
	case *Source:
		if x == nil {
			return Source{}, false
		}
		return *x, x.IsValid()
	case Subscribable:
		return Push(x), true
	case Thenable:
		return Defer(x), true
	}
	if s, ok := callable(v); ok {
		return s, true
	}
	if s, ok := sequence(v); ok {
		return s, true
	}
	return Source{}, false
}

// ForEvent maps v onto a Source suitable for an event binding: a callable,
// a Nexter fed with the event object, or a sequence advanced per event.
func ForEvent(v any) (Source, bool) {
	switch x := v.(type) {
	case Source:
		if x.kind == KindCallable || x.kind == KindSequence {
			return x, true
		}
		if n, ok := x.push.(Nexter); ok && x.kind == KindPush {
			return nexterSource(n).OnError(x.onError), true
		}
		return Source{}, false
	case *Source:
		if x == nil {
			return Source{}, false
		}
		return ForEvent(*x)
	case Nexter:
		return nexterSource(x), true
	}
	if s, ok := callable(v); ok {
		return s, true
	}
	if s, ok := sequence(v); ok {
		return s, true
	}
	return Source{}, false
}

// IsReactive reports whether v maps onto a push, deferred or sequence source.
func IsReactive(v any) bool {
	s, ok := From(v)
	return ok && s.IsReactive()
}

func nexterSource(n Nexter) Source {
	return CallableE(func(ev *dom.Event) (any, error) {
		return nil, n.Next(ev)
	})
}

func callable(v any) (Source, bool) {
	switch fn := v.(type) {
	case Handler:
		return Callable(fn), fn != nil
	case func(*dom.Event) any:
		return Callable(fn), fn != nil
	case func(*dom.Event) (any, error):
		return CallableE(fn), fn != nil
	case func(*dom.Event) bool:
		if fn == nil {
			return Source{}, false
		}
		return Callable(func(ev *dom.Event) any { return fn(ev) }), true
	case func(*dom.Event) error:
		if fn == nil {
			return Source{}, false
		}
		return CallableE(func(ev *dom.Event) (any, error) { return nil, fn(ev) }), true
	case func(*dom.Event):
		if fn == nil {
			return Source{}, false
		}
		return Callable(func(ev *dom.Event) any { fn(ev); return nil }), true
	case func():
		if fn == nil {
			return Source{}, false
		}
		return Callable(func(*dom.Event) any { fn(); return nil }), true
	}
	return Source{}, false
}

func sequence(v any) (Source, bool) {
	switch seq := v.(type) {
	case iter.Seq[any]:
		return Lazy(seq), seq != nil
	case func(yield func(any) bool):
		return Lazy(seq), seq != nil
	}
	return Source{}, false
}
