package strand

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================================
// Pool Creation Tests
// ============================================================================

func TestNewPool_Defaults(t *testing.T) {
	pool, err := NewPool()
	require.NoError(t, err)
	defer pool.Shutdown()

	assert.Greater(t, pool.NumWorkers(), 0)
	assert.False(t, pool.IsShutdown())
}

func TestNewPool_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{
			name: "negative workers",
			opts: []Option{WithNumWorkers(-1)},
		},
		{
			name: "negative queue capacity",
			opts: []Option{WithWorkerQueueCapacity(-1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

// ============================================================================
// Scenario S1 — Smoke
// ============================================================================

func TestPool_Smoke(t *testing.T) {
	pool, err := NewPool(WithNumWorkers(2))
	require.NoError(t, err)

	const n = 1000
	var executed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		pool.Schedule(func() {
			executed.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	pool.Shutdown()

	assert.Equal(t, int64(n), executed.Load())
	stats := pool.Stats()
	assert.Equal(t, uint64(n), stats.Submitted)
	assert.Equal(t, uint64(n), stats.Completed)
}

// ============================================================================
// Scenario S2 — Steal fairness
// ============================================================================

// One worker floods its own local deque; the idle workers must end up
// executing a meaningful share of the tasks by stealing.
func TestPool_StealFairness(t *testing.T) {
	const numWorkers = 4
	pool, err := NewPool(WithNumWorkers(numWorkers))
	require.NoError(t, err)
	defer pool.Shutdown()

	const n = 10000
	var counts [numWorkers]atomic.Int64
	var seeder atomic.Int64
	seeder.Store(-1)

	var wg sync.WaitGroup
	wg.Add(n)

	// The seeder runs on some worker and pushes everything onto that
	// worker's local deque.
	seed := make(chan struct{})
	pool.Schedule(func() {
		seeder.Store(int64(currentWorker().id))
		for i := 0; i < n; i++ {
			pool.Schedule(func() {
				if w := currentWorker(); w != nil {
					counts[w.id].Add(1)
				}
				time.Sleep(20 * time.Microsecond)
				wg.Done()
			})
		}
		close(seed)
	})

	<-seed
	wg.Wait()

	owner := seeder.Load()
	require.GreaterOrEqual(t, owner, int64(0))

	total := int64(0)
	for i := range counts {
		total += counts[i].Load()
	}
	assert.Equal(t, int64(n), total)

	for i := range counts {
		if int64(i) == owner {
			continue
		}
		got := counts[i].Load()
		assert.Greater(t, got, int64(n/20),
			"worker %d stole too little: %d of %d", i, got, n)
	}
	assert.Greater(t, pool.Stats().Stolen, uint64(0))
}

// ============================================================================
// Scenario S4 — Env var override
// ============================================================================

func TestWorkerCount_EnvOverride(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		value string
		want  int
	}{
		{"1", 1},
		{"7", 7},
		{"0", 1},  // below one clamps to one
		{"-3", 1}, // below one clamps to one
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(EnvNumThreads, tt.value)
			assert.Equal(t, tt.want, workerCount(logger))
		})
	}

	t.Run("malformed falls back", func(t *testing.T) {
		t.Setenv(EnvNumThreads, "not-a-number")
		assert.Equal(t, hardwareConcurrency(logger), workerCount(logger))
	})
}

func TestPool_SingleWorkerSeesOneGoroutine(t *testing.T) {
	t.Setenv(EnvNumThreads, "1")
	pool, err := NewPool(WithNumWorkers(workerCount(zap.NewNop())))
	require.NoError(t, err)
	defer pool.Shutdown()

	require.Equal(t, 1, pool.NumWorkers())

	var mu sync.Mutex
	seen := make(map[uint64]struct{})
	var wg sync.WaitGroup

	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		pool.Schedule(func() {
			mu.Lock()
			seen[goid()] = struct{}{}
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	assert.Len(t, seen, 1)
}

// ============================================================================
// Scenario S5 — Post-shutdown submit
// ============================================================================

func TestPool_ScheduleAfterShutdownRunsInline(t *testing.T) {
	pool, err := NewPool(WithNumWorkers(2))
	require.NoError(t, err)
	pool.Shutdown()

	caller := goid()
	var ranOn uint64
	counter := 0
	pool.Schedule(func() {
		ranOn = goid()
		counter++
	})

	// Synchronous, on the caller's goroutine.
	assert.Equal(t, 1, counter)
	assert.Equal(t, caller, ranOn)
	assert.Greater(t, pool.Stats().InlineExecuted, uint64(0))
}

// ============================================================================
// Shutdown Tests
// ============================================================================

// Invariant: after teardown, run count equals schedule count, including
// tasks drained inline.
func TestPool_ShutdownDrainsEverything(t *testing.T) {
	pool, err := NewPool(WithNumWorkers(2))
	require.NoError(t, err)

	const n = 5000
	var executed atomic.Int64
	for i := 0; i < n; i++ {
		pool.Schedule(func() { executed.Add(1) })
	}

	// No waiting: Shutdown itself must guarantee the drain.
	pool.Shutdown()

	assert.Equal(t, int64(n), executed.Load())
	stats := pool.Stats()
	assert.Equal(t, stats.Submitted, stats.Completed)
}

func TestPool_ShutdownIdempotent(t *testing.T) {
	pool, err := NewPool(WithNumWorkers(2))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Shutdown()
		}()
	}
	wg.Wait()
	assert.True(t, pool.IsShutdown())
}

// ============================================================================
// Panic Handling Tests
// ============================================================================

func TestPool_PanickingTaskDoesNotKillWorker(t *testing.T) {
	var panics atomic.Int64
	pool, err := NewPool(
		WithNumWorkers(1),
		WithPanicHandler(func(r interface{}) { panics.Add(1) }),
	)
	require.NoError(t, err)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(2)
	pool.Schedule(func() {
		defer wg.Done()
		panic("task failure")
	})
	// The single worker must survive and run this one too.
	pool.Schedule(func() { wg.Done() })

	wg.Wait()
	assert.Equal(t, int64(1), panics.Load())
}

func TestPool_DefaultPanicHandlerLogsAndContinues(t *testing.T) {
	pool, err := NewPool(WithNumWorkers(1), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(2)
	pool.Schedule(func() {
		defer wg.Done()
		panic("unhandled")
	})
	pool.Schedule(func() { wg.Done() })
	wg.Wait()
}

// ============================================================================
// Stats Tests
// ============================================================================

func TestPool_Stats(t *testing.T) {
	pool, err := NewPool(WithNumWorkers(3))
	require.NoError(t, err)

	const n = 500
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		pool.Schedule(func() { wg.Done() })
	}
	wg.Wait()
	pool.Shutdown()

	stats := pool.Stats()
	assert.Equal(t, uint64(n), stats.Submitted)
	assert.Equal(t, uint64(n), stats.Completed)
	assert.Equal(t, 3, stats.NumWorkers)
	require.Len(t, stats.WorkerStats, 3)

	var perWorker uint64
	for i, ws := range stats.WorkerStats {
		assert.Equal(t, i, ws.WorkerID)
		perWorker += ws.TasksExecuted
	}
	// Everything ran on workers (nothing inline), so per-worker counts
	// add up to the total.
	assert.Equal(t, uint64(n), perWorker)
}
