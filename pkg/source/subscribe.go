package source

import (
	"fmt"
	"iter"
)

// Scheduler queues work on the host loop. *loop.Loop implements it.
type Scheduler interface {
	QueueMicrotask(fn func())
	Post(fn func())
}

// SinkError wraps an error returned by an observer's Next when there was no
// synchronous emitter to return it to.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return fmt.Sprintf("sink: %v", e.Err) }

// Unwrap returns the wrapped error.
func (e *SinkError) Unwrap() error { return e.Err }

// Subscribe attaches obs to src and returns the disposer for the
// subscription.
//
//   - Push sources are subscribed directly; the disposer is theirs.
//   - Deferred sources register with Then. The disposer only suppresses a
//     delivery that has not happened yet.
//   - Sequences pull their first value synchronously. Each emission of the
//     trigger given to LazyOn pulls one more; the sink error of that pull
//     is returned to the trigger's emitter. Exhaustion completes obs.
//   - Callables cannot be subscribed and return ErrNotSubscribable.
func Subscribe(src Source, obs Observer) (Disposer, error) {
	switch src.kind {
	case KindPush:
		d := src.push.Subscribe(obs)
		if d == nil {
			d = func() {}
		}
		return d, nil

	case KindDeferred:
		alive := true
		src.deferred.Then(
			func(v any) {
				if !alive {
					return
				}
				if err := obs.next(v); err != nil {
					obs.fail(&SinkError{Err: err})
				}
				obs.complete()
			},
			func(err error) {
				if alive {
					obs.fail(err)
				}
			},
		)
		return func() { alive = false }, nil

	case KindSequence:
		cur := NewCursor(src.seq)
		pull := func() error {
			if cur.Done() {
				return nil
			}
			v, ok := cur.Pull()
			if !ok {
				obs.complete()
				return nil
			}
			return obs.next(v)
		}
		if err := pull(); err != nil {
			obs.fail(&SinkError{Err: err})
		}
		if src.trigger == nil || cur.Done() {
			return cur.Stop, nil
		}
		untrigger := src.trigger.Subscribe(Observer{
			Next: func(any) error { return pull() },
		})
		return func() {
			cur.Stop()
			if untrigger != nil {
				untrigger()
			}
		}, nil

	case KindCallable:
		return nil, ErrNotSubscribable

	default:
		return nil, ErrInvalidSource
	}
}

// Cursor is an explicit resumable position in a sequence. Each Pull resumes
// where the previous one stopped.
type Cursor struct {
	seq   iter.Seq[any]
	next  func() (any, bool)
	stop  func()
	done  bool
	pulls int
}

// NewCursor creates a cursor at the start of seq. The sequence does not
// start running until the first Pull.
func NewCursor(seq iter.Seq[any]) *Cursor {
	return &Cursor{seq: seq, done: seq == nil}
}

// Pull produces the next value. It returns false once the sequence is
// exhausted or the cursor stopped.
func (c *Cursor) Pull() (any, bool) {
	if c.done {
		return nil, false
	}
	if c.next == nil {
		c.next, c.stop = iter.Pull(c.seq)
	}
	v, ok := c.next()
	if !ok {
		c.Stop()
		return nil, false
	}
	c.pulls++
	return v, true
}

// Stop releases the sequence. Further pulls return false.
func (c *Cursor) Stop() {
	if c.done && c.next == nil {
		return
	}
	c.done = true
	if c.stop != nil {
		c.stop()
		c.stop = nil
		c.next = nil
	}
}

// Done reports whether the cursor can produce more values.
func (c *Cursor) Done() bool { return c.done }

// Pulls returns how many values the cursor produced.
func (c *Cursor) Pulls() int { return c.pulls }
