package strand

import (
	"sync"

	"go.uber.org/zap"
)

// Scheduler is anything that can run a task: the pool, the inline
// scheduler, or the one-goroutine-per-task scheduler.
type Scheduler interface {
	// Schedule queues task for execution. Implementations never report
	// errors: the contract is "queue the task or run it".
	Schedule(task func())
}

// inlineScheduler runs the task synchronously on the caller.
type inlineScheduler struct{}

func (inlineScheduler) Schedule(task func()) {
	if task != nil {
		task()
	}
}

// threadScheduler starts a fresh goroutine per task. No pooling: the
// goroutine runs the task and exits, using the generic wait handler if
// the task waits.
type threadScheduler struct{}

func (threadScheduler) Schedule(task func()) {
	if task != nil {
		go task()
	}
}

var (
	defaultPoolOnce sync.Once
	defaultPool     *Pool
)

// Default returns the process-wide pool, creating it on first use. The
// worker count comes from LIBASYNC_NUM_THREADS when set, otherwise the
// hardware concurrency. The pool lives until Default().Shutdown() or
// process exit.
func Default() *Pool {
	defaultPoolOnce.Do(func() {
		logger := zap.NewNop()
		p, err := NewPool(
			WithNumWorkers(workerCount(logger)),
			WithLogger(logger),
		)
		if err != nil {
			// Only reachable through a bug in workerCount: the resolved
			// count is always positive.
			panic(err)
		}
		defaultPool = p
	})
	return defaultPool
}

// Schedule submits task to the default pool.
func Schedule(task func()) {
	Default().Schedule(task)
}

// InlineScheduler returns the scheduler that runs tasks synchronously on
// the submitting goroutine.
func InlineScheduler() Scheduler {
	return inlineScheduler{}
}

// ThreadScheduler returns the scheduler that runs each task on its own
// new goroutine.
func ThreadScheduler() Scheduler {
	return threadScheduler{}
}
