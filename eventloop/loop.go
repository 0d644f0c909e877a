// Package eventloop provides the single-threaded work queue that every call
// of a client runs on. Transport goroutines post tasks; one goroutine drains
// them in order, so call state needs no locking.
package eventloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Loop is an unbounded FIFO of tasks. Tasks never run concurrently with each
// other.
type Loop struct {
	logger *zap.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	draining atomic.Bool
}

type Option func(*Loop)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(opts ...Option) *Loop {
	l := &Loop{
		logger: zap.NewNop(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("eventloop")
	return l
}

// Post queues task. It is safe to call from any goroutine, including from
// inside a running task; the task then runs after the current one returns.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs queued tasks, including the ones they post, until the queue is
// empty, and returns how many ran. Only one drain runs at a time: a call made
// while another drain is in progress (for example from inside a task)
// returns 0 immediately.
func (l *Loop) Drain() int {
	if !l.draining.CompareAndSwap(false, true) {
		return 0
	}
	defer l.draining.Store(false)

	n := 0
	for {
		task, ok := l.pop()
		if !ok {
			return n
		}
		l.run(task)
		n++
	}
}

// Run drains the loop whenever tasks are posted, until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	if len(l.queue) == 0 {
		l.queue = nil
	}
	return task, true
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()
	task()
}
