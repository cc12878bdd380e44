package strand

import (
	"sync"
	"sync/atomic"
)

// Handle tracks the completion of one task and lets other goroutines wait
// on it. It is the minimal Awaitable: Ready flips exactly once, and every
// OnFinish continuation runs exactly once, after the task body has
// returned. A continuation attached after completion runs immediately on
// the attaching goroutine.
type Handle struct {
	mu    sync.Mutex
	done  atomic.Bool
	conts []func()
}

// NewHandle wraps fn and returns the handle together with the run token
// to hand to a Scheduler. The token must be executed exactly once; it
// marks the handle complete even if fn panics, so a waiter can never be
// stranded by a failing task.
func NewHandle(fn func()) (*Handle, func()) {
	h := &Handle{}
	run := func() {
		defer h.complete()
		if fn != nil {
			fn()
		}
	}
	return h, run
}

func (h *Handle) complete() {
	h.mu.Lock()
	h.done.Store(true)
	conts := h.conts
	h.conts = nil
	h.mu.Unlock()
	for _, fn := range conts {
		fn()
	}
}

// Ready reports whether the task has completed.
func (h *Handle) Ready() bool {
	return h.done.Load()
}

// OnFinish registers fn to run once when the task completes. If the task
// already completed, fn runs before OnFinish returns.
func (h *Handle) OnFinish(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	if h.done.Load() {
		h.mu.Unlock()
		fn()
		return
	}
	h.conts = append(h.conts, fn)
	h.mu.Unlock()
}

// Wait blocks until the task completes, via the calling goroutine's wait
// handler. On a pool worker this pumps the scheduling loop instead of
// blocking.
func (h *Handle) Wait() {
	WaitFor(h)
}

// Spawn submits fn to the default pool and returns its handle.
func Spawn(fn func()) *Handle {
	return SpawnOn(Default(), fn)
}

// SpawnOn submits fn to s and returns its handle.
func SpawnOn(s Scheduler, fn func()) *Handle {
	h, run := NewHandle(fn)
	s.Schedule(run)
	return h
}
