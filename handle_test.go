package strand

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_ReadyAfterRun(t *testing.T) {
	ran := false
	h, run := NewHandle(func() { ran = true })

	assert.False(t, h.Ready())
	run()
	assert.True(t, ran)
	assert.True(t, h.Ready())
}

func TestHandle_ContinuationRunsExactlyOnce(t *testing.T) {
	h, run := NewHandle(func() {})

	var calls atomic.Int32
	h.OnFinish(func() { calls.Add(1) })

	run()
	assert.Equal(t, int32(1), calls.Load())
}

func TestHandle_ContinuationAfterBodyReturns(t *testing.T) {
	var bodyDone atomic.Bool
	h, run := NewHandle(func() { bodyDone.Store(true) })

	sawBodyDone := false
	h.OnFinish(func() { sawBodyDone = bodyDone.Load() })

	run()
	assert.True(t, sawBodyDone, "continuation ran before the body returned")
}

func TestHandle_OnFinishAfterCompletionRunsImmediately(t *testing.T) {
	h, run := NewHandle(func() {})
	run()

	called := false
	h.OnFinish(func() { called = true })
	assert.True(t, called)
}

func TestHandle_NilBody(t *testing.T) {
	h, run := NewHandle(nil)
	run()
	assert.True(t, h.Ready())
}

func TestHandle_CompletesEvenIfBodyPanics(t *testing.T) {
	h, run := NewHandle(func() { panic("boom") })

	require.Panics(t, func() { run() })
	// The waiter must not be stranded by a failing task.
	assert.True(t, h.Ready())
}

func TestSpawnOn_Inline(t *testing.T) {
	ran := false
	h := SpawnOn(InlineScheduler(), func() { ran = true })

	// Inline scheduling completes before SpawnOn returns.
	assert.True(t, ran)
	assert.True(t, h.Ready())
	h.Wait() // must not block
}

func TestSpawnOn_Thread(t *testing.T) {
	done := make(chan struct{})
	h := SpawnOn(ThreadScheduler(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("thread scheduler never ran the task")
	}
	h.Wait()
	assert.True(t, h.Ready())
}

func TestInlineScheduler_RunsOnCaller(t *testing.T) {
	caller := goid()
	var taskGoroutine uint64
	InlineScheduler().Schedule(func() { taskGoroutine = goid() })
	assert.Equal(t, caller, taskGoroutine)
}

func TestThreadScheduler_RunsElsewhere(t *testing.T) {
	caller := goid()
	got := make(chan uint64, 1)
	ThreadScheduler().Schedule(func() { got <- goid() })

	select {
	case id := <-got:
		assert.NotEqual(t, caller, id)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}
