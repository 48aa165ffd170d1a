// Package eventloop provides a single goroutine task queue. It plays the role of
// the UI thread: everything posted to a Loop runs one at a time, in post order,
// so tasks may touch UI state without their own locking.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrAlreadyRunning = errors.New("event loop already running")

type Loop struct {
	mu      sync.Mutex
	queue   []func() // unbounded so Post never blocks the network goroutine
	closed  bool
	started bool

	wake      chan struct{}
	done      chan struct{}
	executing atomic.Bool
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues fn and returns immediately. It returns false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Invoke posts fn and waits for it to finish. It returns false when fn never
// ran because the loop stopped first. Calling it from inside a task deadlocks.
func (l *Loop) Invoke(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		// Run has returned; a task that ran closed finished before that
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Run executes tasks until Stop is called and the queue is drained, or ctx is
// done. On cancellation the remaining tasks are dropped; Invoke callers waiting
// on them return false.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.started = true
	l.mu.Unlock()
	defer close(l.done)

	for {
		l.mu.Lock()
		if ctx.Err() != nil {
			l.discard()
			l.mu.Unlock()
			return ctx.Err()
		}
		if len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return nil
			}
			l.mu.Unlock()
			select {
			case <-l.wake:
				continue
			case <-ctx.Done():
				l.mu.Lock()
				l.discard()
				l.mu.Unlock()
				return ctx.Err()
			}
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.execute(fn)
	}
}

// discard refuses new tasks and drops queued ones. l.mu must be held.
func (l *Loop) discard() {
	l.closed = true
	if n := len(l.queue); n > 0 {
		l.logger.Debug("event_loop_tasks_dropped", "count", n)
	}
	l.queue = nil
}

// Start runs the loop on its own goroutine.
func (l *Loop) Start() {
	go func() {
		if err := l.Run(context.Background()); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			l.logger.Warn("event_loop_stopped", "error", err.Error())
		}
	}()
}

// Stop refuses new tasks; tasks already queued still run before Run returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Executing reports whether a task is running right now.
func (l *Loop) Executing() bool { return l.executing.Load() }

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) execute(fn func()) {
	l.executing.Store(true)
	defer l.executing.Store(false)
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event_loop_task_panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
