package strand

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Go offers no thread-local storage, so "is the calling goroutine a pool
// worker?" is answered by a registry keyed on goroutine id. The id comes
// from the runtime.Stack header: a single small stack read, no allocation
// beyond the fixed buffer. Workers register once at startup; lookups from
// non-workers short-circuit on the live-worker counter when no pool is
// running.

var (
	// liveWorkers counts registered worker goroutines across all pools.
	liveWorkers atomic.Int64

	// workerByGoroutine maps goroutine id -> *worker.
	workerByGoroutine sync.Map

	// waitHandlerByGoroutine maps goroutine id -> WaitHandler. Absent
	// means the generic handler.
	waitHandlerByGoroutine sync.Map
)

// goid returns the current goroutine's id.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header looks like "goroutine 123 [running]:".
	const prefix = len("goroutine ")
	var id uint64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// registerCurrentWorker binds the calling goroutine to w. Called once
// from the top of the worker loop.
func registerCurrentWorker(w *worker) {
	workerByGoroutine.Store(goid(), w)
	liveWorkers.Add(1)
}

// unregisterCurrentWorker removes the binding at worker exit.
func unregisterCurrentWorker() {
	workerByGoroutine.Delete(goid())
	liveWorkers.Add(-1)
}

// currentWorker returns the worker bound to the calling goroutine, or nil
// if the caller is not a pool worker.
func currentWorker() *worker {
	if liveWorkers.Load() == 0 {
		return nil
	}
	if v, ok := workerByGoroutine.Load(goid()); ok {
		return v.(*worker)
	}
	return nil
}
