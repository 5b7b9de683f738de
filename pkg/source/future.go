package source

import (
	"context"
	"fmt"
	"sync"
)

// MicrotaskQueue is the part of the host loop a Future settles on.
type MicrotaskQueue interface {
	QueueMicrotask(fn func())
}

// FutureState is the settlement state of a Future.
type FutureState uint8

const (
	FuturePending FutureState = iota
	FutureResolved
	FutureRejected
)

// String returns the string representation of the state.
func (s FutureState) String() string {
	switch s {
	case FutureResolved:
		return "resolved"
	case FutureRejected:
		return "rejected"
	default:
		return "pending"
	}
}

type callbacks struct {
	onValue func(any)
	onError func(error)
}

// Future is a deferred single value. Callbacks always run as microtasks on
// the queue it was created with, never synchronously inside Then or Resolve.
type Future struct {
	q MicrotaskQueue

	mu      sync.Mutex
	state   FutureState
	value   any
	err     error
	waiters []callbacks
	hooks   []func()
}

// NewFuture creates a pending future settled on q.
func NewFuture(q MicrotaskQueue) *Future {
	return &Future{q: q}
}

// Resolved returns a future already resolved with v.
func Resolved(q MicrotaskQueue, v any) *Future {
	f := NewFuture(q)
	f.Resolve(v)
	return f
}

// Rejected returns a future already rejected with err.
func Rejected(q MicrotaskQueue, err error) *Future {
	f := NewFuture(q)
	f.Reject(err)
	return f
}

// Resolve settles the future with v. Only the first settlement counts.
// Safe to call from any goroutine.
func (f *Future) Resolve(v any) bool {
	return f.settle(FutureResolved, v, nil)
}

// Reject settles the future with err. Only the first settlement counts.
func (f *Future) Reject(err error) bool {
	if err == nil {
		err = fmt.Errorf("source: future rejected with nil error")
	}
	return f.settle(FutureRejected, nil, err)
}

func (f *Future) settle(state FutureState, v any, err error) bool {
	f.mu.Lock()
	if f.state != FuturePending {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.value = v
	f.err = err
	waiters := f.waiters
	hooks := f.hooks
	f.waiters = nil
	f.hooks = nil
	f.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	for _, w := range waiters {
		f.schedule(w)
	}
	return true
}

// Then implements Thenable.
func (f *Future) Then(onValue func(v any), onError func(err error)) {
	cb := callbacks{onValue: onValue, onError: onError}

	f.mu.Lock()
	if f.state == FuturePending {
		f.waiters = append(f.waiters, cb)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.schedule(cb)
}

func (f *Future) schedule(cb callbacks) {
	f.q.QueueMicrotask(func() {
		f.mu.Lock()
		state, v, err := f.state, f.value, f.err
		f.mu.Unlock()

		switch state {
		case FutureResolved:
			if cb.onValue != nil {
				cb.onValue(v)
			}
		case FutureRejected:
			if cb.onError != nil {
				cb.onError(err)
			}
		}
	})
}

// State returns the settlement state.
func (f *Future) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the settled value and error. Both are zero while pending.
func (f *Future) Result() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Async runs fn on its own goroutine and settles the returned future on q.
// Cancelling ctx rejects the future with ctx.Err() unless fn finished first.
func Async(ctx context.Context, q MicrotaskQueue, fn func(ctx context.Context) (any, error)) *Future {
	f := NewFuture(q)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.Reject(fmt.Errorf("source: async panic: %v", r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()

	if done := ctx.Done(); done != nil {
		go func() {
			select {
			case <-done:
				f.Reject(ctx.Err())
			case <-f.settled():
			}
		}()
	}
	return f
}

// settled returns a channel closed once the future settles. Unlike Then it
// does not depend on the loop running.
func (f *Future) settled() <-chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FuturePending {
		close(ch)
		return ch
	}
	f.hooks = append(f.hooks, func() { close(ch) })
	return ch
}
