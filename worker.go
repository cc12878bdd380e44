package strand

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// worker is one slot of the pool: a goroutine with a local deque, a park
// event and its own PRNG for victim selection.
type worker struct {
	id    int
	pool  *Pool
	queue *WorkStealQueue
	event *autoResetEvent

	// rng drives the steal order. Seeded from the worker index so every
	// worker probes victims in a different sequence.
	rng *rand.Rand

	tasksExecuted atomic.Uint64
	tasksStolen   atomic.Uint64
}

func newWorker(id int, pool *Pool) *worker {
	return &worker{
		id:    id,
		pool:  pool,
		queue: NewWorkStealQueue(pool.config.WorkerQueueCapacity),
		event: newAutoResetEvent(),
		rng:   rand.New(rand.NewPCG(uint64(id), uint64(id)+1)),
	}
}

// run is the worker main loop.
//
// The search order is local (LIFO), public (FIFO), shutdown check, steal,
// park. Checking shutdown before stealing, and again after registering on
// the waiter list, is what makes the shutdown broadcast race-free against
// a worker that just missed a wakeup.
func (w *worker) run() {
	if w.pool.config.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	registerCurrentWorker(w)
	SetWaitHandler(w.waitForTask)
	defer func() {
		SetWaitHandler(nil)
		unregisterCurrentWorker()
		w.pool.logger.Debug("worker stopped", zap.Int("worker", w.id))
	}()
	w.pool.logger.Debug("worker started", zap.Int("worker", w.id))

	p := w.pool
	for {
		// Drain our own deque first, newest task first.
		for task := w.queue.Pop(); task != nil; task = w.queue.Pop() {
			w.runTask(task)
		}

		for {
			if task := p.public.pop(); task != nil {
				w.runTask(task)
				break
			}

			// With no local or public work left we are allowed to exit.
			if p.shutdown.Load() {
				return
			}

			if task := w.steal(); task != nil {
				w.runTask(task)
				break
			}

			// Nothing anywhere. Park: reset, register, re-check shutdown
			// (a broadcast between the check above and our registration
			// would otherwise be missed), re-check the public queue, then
			// sleep until a submission signals us.
			w.event.reset()
			p.addWaiter(w.event)
			if p.shutdown.Load() {
				return
			}
			// A submitter that missed our registration has already
			// published its task, so this read sees it. Without this
			// re-check a task could sit queued with every worker asleep.
			if task := p.public.pop(); task != nil {
				p.removeWaiter(w.event)
				w.runTask(task)
				break
			}
			w.event.wait()
			p.removeWaiter(w.event)
		}
	}
}

// steal probes every other worker once, in an order freshly permuted by
// our PRNG. A fixed rotation would make convoys where several idle
// workers hammer the same victim.
func (w *worker) steal() func() {
	workers := w.pool.workers
	for _, victim := range w.rng.Perm(len(workers)) {
		if victim == w.id {
			continue
		}
		if task := workers[victim].queue.Steal(); task != nil {
			w.tasksStolen.Add(1)
			w.pool.metrics.stolen.Add(1)
			return task
		}
	}
	// Nothing found. We may have raced a push, but whoever pushed also
	// wakes a waiter, so the task is not stranded.
	return nil
}

func (w *worker) runTask(task func()) {
	w.tasksExecuted.Add(1)
	w.pool.execute(task)
}

// waitForTask is the pool worker's wait handler: instead of blocking the
// worker, keep running other tasks until t completes. The worker's park
// event serves both wake sources, a new submission and t finishing; the
// completion continuation is attached lazily, at most once, and only when
// we actually decide to park.
func (w *worker) waitForTask(t Awaitable) {
	p := w.pool
	continuationAdded := false

	for {
		if t.Ready() {
			return
		}

		if task := w.queue.Pop(); task != nil {
			w.runTask(task)
			continue
		}

		for {
			if task := p.public.pop(); task != nil {
				w.runTask(task)
				break
			}
			if task := w.steal(); task != nil {
				w.runTask(task)
				break
			}

			w.event.reset()

			// Re-check after the reset: a completion that signalled just
			// before the reset would otherwise be consumed and lost.
			// Ready is an atomic load, ordered against the completer's
			// store by the completion flag itself.
			if t.Ready() {
				return
			}

			if !continuationAdded {
				t.OnFinish(w.event.signal)
				continuationAdded = true
			}

			p.addWaiter(w.event)
			// Same registration race as the main loop: a submission that
			// did not see us on the waiter list already published its
			// task for this read.
			if task := p.public.pop(); task != nil {
				p.removeWaiter(w.event)
				w.runTask(task)
				break
			}
			w.event.wait()
			p.removeWaiter(w.event)

			if t.Ready() {
				return
			}
		}
	}
}
