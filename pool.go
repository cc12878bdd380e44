package strand

import (
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Pool is a fixed-size work-stealing scheduler. Tasks submitted by pool
// workers go onto the submitting worker's local deque; tasks from
// everywhere else go through the public FIFO queue. Idle workers steal
// from each other before parking.
type Pool struct {
	config Config
	logger *zap.Logger

	workers []*worker
	public  fifoQueue

	// Parked workers register their events here. waiterCount shadows
	// len(waiters) so the submission fast path can skip the lock; every
	// real decision is re-made while holding waitersLock.
	waitersLock spinLock
	waiters     []*autoResetEvent
	waiterCount atomic.Int64

	shutdown     atomic.Bool
	shutdownOnce sync.Once
	done         sync.WaitGroup

	metrics poolMetrics
}

// poolMetrics tracks pool-wide counters.
type poolMetrics struct {
	submitted atomic.Uint64
	completed atomic.Uint64
	stolen    atomic.Uint64
	inline    atomic.Uint64
}

// NewPool creates a pool and starts its workers. With no options the
// worker count is the hardware concurrency.
//
// Example:
//
//	pool, err := strand.NewPool(strand.WithNumWorkers(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown()
func NewPool(opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	n := cfg.NumWorkers
	if n == 0 {
		n = hardwareConcurrency(cfg.Logger)
	}

	p := &Pool{
		config: cfg,
		logger: cfg.Logger,
	}
	p.public.init()
	p.waiters = make([]*autoResetEvent, 0, n)
	p.workers = make([]*worker, n)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
	}

	p.logger.Debug("starting pool", zap.Int("workers", n))
	for _, w := range p.workers {
		p.done.Add(1)
		go func(w *worker) {
			defer p.done.Done()
			w.run()
		}(w)
	}
	return p, nil
}

// Schedule queues task for execution. It never fails: after Shutdown the
// task runs inline on the caller instead. Nil tasks are ignored.
func (p *Pool) Schedule(task func()) {
	if task == nil {
		return
	}
	p.metrics.submitted.Add(1)

	if p.shutdown.Load() {
		p.metrics.inline.Add(1)
		p.execute(task)
		return
	}

	if w := currentWorker(); w != nil && w.pool == p {
		w.queue.Push(task)
	} else {
		p.public.push(task)
	}

	p.wakeOne()
}

// wakeOne wakes at most one parked worker. Waking a single worker per
// submission avoids a thundering herd. Only submissions call it: a woken
// worker does not wake further workers on its own.
func (p *Pool) wakeOne() {
	// Fast path: nobody is parked. The counter is a hint; the pop below
	// re-checks under the lock.
	if p.waiterCount.Load() == 0 {
		return
	}

	var wake *autoResetEvent
	p.waitersLock.lock()
	if n := len(p.waiters); n > 0 {
		wake = p.waiters[n-1]
		p.waiters[n-1] = nil
		p.waiters = p.waiters[:n-1]
		p.waiterCount.Store(int64(n - 1))
	}
	p.waitersLock.unlock()

	if wake != nil {
		wake.signal()
	}
}

// addWaiter registers a parked (or about to park) worker's event.
func (p *Pool) addWaiter(event *autoResetEvent) {
	p.waitersLock.lock()
	p.waiters = append(p.waiters, event)
	p.waiterCount.Store(int64(len(p.waiters)))
	p.waitersLock.unlock()
}

// removeWaiter deletes event from the registry. No-op when a signaller
// already popped it.
func (p *Pool) removeWaiter(event *autoResetEvent) {
	p.waitersLock.lock()
	for i, e := range p.waiters {
		if e == event {
			last := len(p.waiters) - 1
			p.waiters[i] = p.waiters[last]
			p.waiters[last] = nil
			p.waiters = p.waiters[:last]
			break
		}
	}
	p.waiterCount.Store(int64(len(p.waiters)))
	p.waitersLock.unlock()
}

// Shutdown stops the pool: sets the shutdown flag, wakes every parked
// worker, waits for the workers to exit, then drains whatever is left in
// the public queue by running it inline on the caller. Safe to call more
// than once; subsequent calls return after the first completes.
//
// After Shutdown returns no queued task remains and no worker is alive.
// Schedule keeps working, running tasks inline.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.logger.Debug("pool shutting down")
		p.shutdown.Store(true)

		p.waitersLock.lock()
		for _, e := range p.waiters {
			e.signal()
		}
		p.waiters = nil
		p.waiterCount.Store(0)
		p.waitersLock.unlock()

		p.done.Wait()

		for task := p.public.pop(); task != nil; task = p.public.pop() {
			p.metrics.inline.Add(1)
			p.execute(task)
		}
		p.logger.Debug("pool shut down")
	})
}

// IsShutdown reports whether Shutdown has been initiated.
func (p *Pool) IsShutdown() bool {
	return p.shutdown.Load()
}

// NumWorkers returns the fixed worker count.
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// execute runs one task with panic recovery. A panicking task must not
// take its worker down or skew the completion count.
func (p *Pool) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.handlePanic(r)
		}
		p.metrics.completed.Add(1)
	}()
	task()
}

func (p *Pool) handlePanic(r interface{}) {
	if p.config.PanicHandler != nil {
		p.config.PanicHandler(r)
		return
	}
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	p.logger.Error("task panicked",
		zap.Any("panic", r),
		zap.ByteString("stack", buf[:n]))
}
