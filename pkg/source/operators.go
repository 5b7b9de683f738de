package source

import (
	"iter"

	"github.com/vango-dev/refx/pkg/dom"
)

// Map returns a source of the same shape whose values are passed through fn.
// For callables fn is applied to the handler's result.
func Map(src Source, fn func(v any) any) Source {
	if fn == nil {
		return src
	}
	out := src
	switch src.kind {
	case KindPush:
		out.push = mappedPush{src: src.push, fn: fn}
	case KindDeferred:
		out.deferred = mappedThen{src: src.deferred, fn: fn}
	case KindSequence:
		seq := src.seq
		out.seq = func(yield func(any) bool) {
			for v := range seq {
				if !yield(fn(v)) {
					return
				}
			}
		}
	case KindCallable:
		call := src.call
		out.call = func(ev *dom.Event) (any, error) {
			v, err := call(ev)
			if err != nil {
				return nil, err
			}
			return fn(v), nil
		}
	}
	return out
}

type mappedPush struct {
	src Subscribable
	fn  func(any) any
}

func (m mappedPush) Subscribe(obs Observer) Disposer {
	inner := obs
	inner.Next = func(v any) error { return obs.next(m.fn(v)) }
	return m.src.Subscribe(inner)
}

type mappedThen struct {
	src Thenable
	fn  func(any) any
}

func (m mappedThen) Then(onValue func(any), onError func(error)) {
	m.src.Then(func(v any) {
		if onValue != nil {
			onValue(m.fn(v))
		}
	}, onError)
}

// Suspense returns a push source that synchronously emits initial to each
// subscriber and then forwards the values of next. next must be a push or
// deferred source; anything else is reported through the observer's Error.
func Suspense(initial any, next Source) Source {
	return Push(suspense{initial: initial, next: next})
}

type suspense struct {
	initial any
	next    Source
}

func (s suspense) Subscribe(obs Observer) Disposer {
	if err := obs.next(s.initial); err != nil {
		obs.fail(&SinkError{Err: err})
	}

	switch s.next.kind {
	case KindPush, KindDeferred:
		d, err := Subscribe(s.next, obs)
		if err != nil {
			obs.fail(err)
			return func() {}
		}
		return d
	default:
		obs.fail(ErrNotSubscribable)
		return func() {}
	}
}

// Values returns a sequence over vs, handy for sequence-driven bindings.
func Values(vs ...any) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range vs {
			if !yield(v) {
				return
			}
		}
	}
}
