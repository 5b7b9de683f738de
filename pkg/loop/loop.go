package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Run when the loop has been closed.
var ErrClosed = errors.New("loop: closed")

// Loop is a cooperative task/microtask scheduler.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	micro []func()

	// wake is signalled whenever work is queued so Run can sleep.
	wake chan struct{}
	done chan struct{}

	closed  atomic.Bool
	running atomic.Bool

	logger  *slog.Logger
	onPanic func(r any, stack []byte)

	turns atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPanicHandler sets a callback invoked after a task panic is recovered.
func WithPanicHandler(fn func(r any, stack []byte)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn to run as a task on a later turn.
func (l *Loop) Post(fn func()) {
	if fn == nil || l.closed.Load() {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// QueueMicrotask queues fn to run at the next microtask checkpoint, which is
// the end of the current task (or the start of the next drain when no task
// is running).
func (l *Loop) QueueMicrotask(fn func()) {
	if fn == nil || l.closed.Load() {
		return
	}
	l.mu.Lock()
	l.micro = append(l.micro, fn)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks and microtasks.
func (l *Loop) Pending() (tasks, microtasks int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks), len(l.micro)
}

// Turns returns the number of task turns executed so far.
func (l *Loop) Turns() uint64 {
	return l.turns.Load()
}

// DrainMicrotasks runs queued microtasks until the queue is empty.
// It returns the number of microtasks executed.
func (l *Loop) DrainMicrotasks() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.micro) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.micro[0]
		l.micro[0] = nil
		l.micro = l.micro[1:]
		l.mu.Unlock()

		l.safeExecute(fn)
		n++
	}
}

// Step runs a microtask checkpoint, one task, and a second checkpoint.
// It reports whether a task was run.
func (l *Loop) Step() bool {
	l.DrainMicrotasks()

	l.mu.Lock()
	if len(l.tasks) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	l.mu.Unlock()

	l.turns.Add(1)
	l.safeExecute(fn)
	l.DrainMicrotasks()
	return true
}

// RunUntilIdle runs turns until both queues are empty and returns the number
// of tasks executed. Work queued while running is included.
func (l *Loop) RunUntilIdle() int {
	n := 0
	for l.Step() {
		n++
	}
	return n
}

// Run processes work until ctx is cancelled or the loop is closed.
// Only one goroutine may call Run at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop: already running")
	}
	defer l.running.Store(false)

	for {
		l.RunUntilIdle()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		case <-l.wake:
		}
	}
}

// Close discards queued work and stops Run. Further Post calls are ignored.
func (l *Loop) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	l.mu.Lock()
	l.tasks = nil
	l.micro = nil
	l.mu.Unlock()
	close(l.done)
}

// safeExecute runs fn with panic recovery.
func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			l.logger.Error("task panic",
				"panic", r,
				"stack", string(stack))
			if l.onPanic != nil {
				l.onPanic(r, stack)
			}
		}
	}()

	fn()
}
