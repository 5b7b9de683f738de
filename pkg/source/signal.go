package source

import (
	"errors"
	"reflect"
	"sync"
)

// subscribers provides observer management shared by Signal and Subject.
type subscribers struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	closed bool
	err    error
}

type subscription struct {
	id  uint64
	obs Observer
}

// add registers obs and returns its disposer.
func (s *subscribers) add(obs Observer) Disposer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &subscription{id: s.nextID, obs: obs}
	s.subs = append(s.subs, sub)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(sub.id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// snapshot copies the observer list so notification runs without the lock.
func (s *subscribers) snapshot() []*subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	return subs
}

// publish delivers v to every observer and joins their errors.
func (s *subscribers) publish(v any) error {
	var errs []error
	for _, sub := range s.snapshot() {
		if err := sub.obs.next(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// terminate completes or fails every observer and drops them.
func (s *subscribers) terminate(err error) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.err = err
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		if err != nil {
			sub.obs.fail(err)
		} else {
			sub.obs.complete()
		}
	}
	return true
}

func (s *subscribers) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *subscribers) isClosed() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed, s.err
}

// Signal is a push source holding a current value. Subscribers receive the
// current value immediately and every change after it.
type Signal[T any] struct {
	subs subscribers

	// mu protects value.
	mu    sync.RWMutex
	value T

	// equal decides whether Set changed the value. nil uses reflect.DeepEqual.
	equal func(a, b T) bool
}

// NewSignal creates a signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{value: initial}
}

// WithEquals configures a custom equality function.
func (s *Signal[T]) WithEquals(fn func(a, b T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set stores value and notifies subscribers if it changed. Errors returned
// by subscribers, such as failed DOM mutations, are joined and returned.
func (s *Signal[T]) Set(value T) error {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.subs.publish(value)
}

// Update atomically derives the next value from the current one.
func (s *Signal[T]) Update(fn func(T) T) error {
	s.mu.Lock()
	old := s.value
	next := fn(old)
	changed := !s.equals(old, next)
	if changed {
		s.value = next
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.subs.publish(next)
}

// Subscribe implements Subscribable. The current value is delivered
// synchronously before Subscribe returns.
func (s *Signal[T]) Subscribe(obs Observer) Disposer {
	if closed, err := s.subs.isClosed(); closed {
		if err != nil {
			obs.fail(err)
		} else {
			obs.complete()
		}
		return func() {}
	}
	d := s.subs.add(obs)
	if err := obs.next(s.Get()); err != nil {
		obs.fail(&SinkError{Err: err})
	}
	return d
}

// Complete ends the signal; subscribers are completed and dropped.
func (s *Signal[T]) Complete() { s.subs.terminate(nil) }

// Fail ends the signal with an error delivered to every subscriber.
func (s *Signal[T]) Fail(err error) { s.subs.terminate(err) }

// Subscribers returns the number of active subscribers.
func (s *Signal[T]) Subscribers() int { return s.subs.count() }

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// Subject is a hot push source without a current value. It is also a
// Nexter, so it can sit in an event position and receive event objects.
type Subject struct {
	subs subscribers
}

// NewSubject creates an empty subject.
func NewSubject() *Subject {
	return &Subject{}
}

// Next emits v to current subscribers.
func (s *Subject) Next(v any) error {
	if closed, _ := s.subs.isClosed(); closed {
		return nil
	}
	return s.subs.publish(v)
}

// Subscribe implements Subscribable.
func (s *Subject) Subscribe(obs Observer) Disposer {
	if closed, err := s.subs.isClosed(); closed {
		if err != nil {
			obs.fail(err)
		} else {
			obs.complete()
		}
		return func() {}
	}
	return s.subs.add(obs)
}

// Complete ends the stream.
func (s *Subject) Complete() { s.subs.terminate(nil) }

// Fail ends the stream with err.
func (s *Subject) Fail(err error) { s.subs.terminate(err) }

// Subscribers returns the number of active subscribers.
func (s *Subject) Subscribers() int { return s.subs.count() }
