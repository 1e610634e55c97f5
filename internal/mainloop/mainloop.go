// Package mainloop implements the single execution context on which all
// connection manager state is mutated. Tasks run one at a time, in the
// order they were posted.
package mainloop

import (
	"context"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/ftag"

	"github.com/darkhz/bleconnmgr/errorkinds"
)

// DefaultQueueSize is the initial capacity of the task queue.
const DefaultQueueSize = 64

// Loop is a single-consumer task queue. The queue grows as needed, so Post
// never blocks, including when called from a running task.
type Loop struct {
	queue []func()
	lock  sync.Mutex

	wake chan struct{}
	done chan struct{}

	stopOnce sync.Once
	running  sync.Mutex
}

// New returns a new loop. It does not process tasks until Run is called.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Loop{
		queue: make([]func(), 0, queueSize),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Run processes tasks until the context is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.TryLock() {
		return fault.Wrap(errorkinds.ErrLoopStopped,
			fctx.With(ctx, "error_at", "mainloop-run"),
			ftag.With(ftag.Internal),
		)
	}
	defer l.running.Unlock()
	defer l.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-l.done:
			return nil

		case <-l.wake:
		}

		for {
			task, ok := l.next()
			if !ok {
				break
			}

			task()

			select {
			case <-ctx.Done():
				return ctx.Err()

			case <-l.done:
				return nil

			default:
			}
		}
	}
}

// next removes and returns the oldest pending task.
func (l *Loop) next() (func(), bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}

	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return task, true
}

// Post queues a task. It reports false if the loop was stopped.
func (l *Loop) Post(task func()) bool {
	select {
	case <-l.done:
		return false

	default:
	}

	l.lock.Lock()
	l.queue = append(l.queue, task)
	l.lock.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return true
}

// Do posts a task and waits for it to complete.
// It must not be called from within a task.
func (l *Loop) Do(ctx context.Context, task func()) error {
	finished := make(chan struct{})

	if !l.Post(func() {
		defer close(finished)
		task()
	}) {
		return fault.Wrap(errorkinds.ErrLoopStopped,
			fctx.With(ctx, "error_at", "mainloop-do"),
			ftag.With(ftag.Internal),
		)
	}

	select {
	case <-finished:
		return nil

	case <-l.done:
		return fault.Wrap(errorkinds.ErrLoopStopped,
			fctx.With(ctx, "error_at", "mainloop-do"),
			ftag.With(ftag.Internal),
		)

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops the loop. Pending tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// Done returns a channel that is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
