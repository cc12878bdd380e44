// Package group provides structured concurrency on top of the strand
// schedulers: spawn a set of tasks, wait for all of them, and get their
// errors back under a configurable policy.
//
// Unlike sync.WaitGroup-style fan-out on raw goroutines, a Group runs
// its tasks through a strand.Scheduler. Calling Wait from inside a pool
// task therefore does not stall a worker: the wait handler pumps the
// scheduling loop, so a single-worker pool can still complete a group
// spawned from one of its own tasks.
package group

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/tahsin716/strand"
)

// Group manages a collection of tasks with structured concurrency.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	config Config

	mu      sync.Mutex
	handles []*strand.Handle
	errors  []error
	first   error
}

// New creates a Group that schedules onto the default pool.
func New(opts ...Option) *Group {
	return NewWithContext(context.Background(), opts...)
}

// NewWithContext creates a Group with a parent context. The context
// passed to tasks is cancelled on the first error in FailFast mode and
// when Wait returns.
func NewWithContext(ctx context.Context, opts ...Option) *Group {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	groupCtx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    groupCtx,
		cancel: cancel,
		config: config,
	}
}

// Go schedules fn as a task of the group. Panics are recovered and
// reported as a *PanicError through the group's error mode.
func (g *Group) Go(fn func(context.Context) error) {
	s := g.config.scheduler
	if s == nil {
		s = strand.Default()
	}
	h := strand.SpawnOn(s, func() {
		defer func() {
			if r := recover(); r != nil {
				g.handleError(&PanicError{
					Value: r,
					Stack: string(debug.Stack()),
				})
			}
		}()
		if err := fn(g.ctx); err != nil {
			g.handleError(err)
		}
	})

	g.mu.Lock()
	g.handles = append(g.handles, h)
	g.mu.Unlock()
}

// GoSafe schedules a fire-and-forget task whose errors are ignored.
func (g *Group) GoSafe(fn func(context.Context)) {
	g.Go(func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Wait blocks until every task of the group has completed, including
// tasks spawned by other tasks after Wait was called, then cancels the
// group context and reports errors per the configured mode. On a pool
// worker, Wait executes other scheduled tasks instead of blocking.
func (g *Group) Wait() error {
	for i := 0; ; i++ {
		g.mu.Lock()
		if i >= len(g.handles) {
			g.mu.Unlock()
			break
		}
		h := g.handles[i]
		g.mu.Unlock()
		strand.WaitFor(h)
	}
	g.cancel()

	switch g.config.errorMode {
	case IgnoreErrors:
		return nil

	case FailFast:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.first

	case CollectAll:
		g.mu.Lock()
		defer g.mu.Unlock()
		if len(g.errors) > 0 {
			collected := make([]error, len(g.errors))
			copy(collected, g.errors)
			return AggregateError{Errors: collected}
		}
		return nil

	default:
		return nil
	}
}

// Stop cancels the group context, signalling tasks to stop. Tasks
// already queued still run; they are expected to observe the context.
func (g *Group) Stop() {
	g.cancel()
}

func (g *Group) handleError(err error) {
	switch g.config.errorMode {
	case IgnoreErrors:

	case FailFast:
		g.mu.Lock()
		if g.first == nil {
			g.first = err
		}
		g.mu.Unlock()
		g.cancel()

	case CollectAll:
		g.mu.Lock()
		g.errors = append(g.errors, err)
		g.mu.Unlock()
	}
}
