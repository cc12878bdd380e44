// Package strand is a work-stealing task scheduler for short-lived,
// non-blocking units of work.
//
// A fixed pool of workers executes tasks submitted through Schedule.
// Tasks submitted by a pool worker land on that worker's local deque and
// are popped LIFO; tasks from any other goroutine go through a public
// FIFO queue. Idle workers steal the oldest tasks from randomly chosen
// victims before parking, so a burst pushed by one worker spreads across
// the pool.
//
// The defining feature is the nested wait protocol: a task that calls
// WaitFor (or Handle.Wait) on another task does not block its worker.
// The worker re-enters the scheduling loop and keeps executing other
// tasks until the awaited task completes, which keeps the pool fully
// utilized even under deep task dependencies.
//
// # Quick start
//
//	// Uses the process-wide default pool.
//	h := strand.Spawn(func() {
//	    inner := strand.Spawn(step)
//	    inner.Wait() // worker runs other tasks while waiting
//	})
//	h.Wait()
//
// A private pool with options:
//
//	pool, err := strand.NewPool(
//	    strand.WithNumWorkers(8),
//	    strand.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Shutdown()
//	pool.Schedule(task)
//
// # Dispatch strategies
//
// Three schedulers share one Schedule-shaped interface:
//
//   - Default / NewPool: the work-stealing pool.
//   - InlineScheduler: runs the task synchronously on the caller.
//   - ThreadScheduler: one fresh goroutine per task, no pooling.
//
// # Worker count
//
// The default pool reads LIBASYNC_NUM_THREADS; a malformed value falls
// back to the hardware concurrency (container CPU quota respected) and a
// value below one is clamped to one.
//
// # Shutdown
//
// Pool.Shutdown wakes every parked worker, waits for them to exit, and
// drains remaining queued tasks inline on the caller, so every scheduled
// task runs exactly once. Schedule after shutdown degrades to inline
// execution on the submitter.
//
// # Observability
//
// Pool.Stats returns pool and per-worker counters; NewCollector adapts
// them to a prometheus.Collector. Lifecycle events go to the logger
// configured with WithLogger at debug level.
package strand
