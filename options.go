package strand

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// EnvNumThreads overrides the default pool's worker count. The value must
// be a decimal integer; malformed values are ignored and values below one
// are clamped to one.
const EnvNumThreads = "LIBASYNC_NUM_THREADS"

// Config contains the pool configuration. Use the Option helpers rather
// than building one by hand.
type Config struct {
	// NumWorkers is the number of worker goroutines.
	// If 0, the hardware concurrency is used.
	NumWorkers int

	// WorkerQueueCapacity is the initial capacity of each worker's local
	// deque. Deques grow without bound on overflow, so this only sizes
	// the first allocation.
	WorkerQueueCapacity int64

	// PinWorkers locks each worker goroutine to an OS thread. This can
	// improve cache locality for CPU-bound task streams.
	PinWorkers bool

	// PanicHandler is called when a task panics. If nil, the panic and
	// its stack are logged and the worker keeps running.
	PanicHandler func(interface{})

	// Logger receives pool lifecycle events at debug level. Defaults to
	// a no-op logger.
	Logger *zap.Logger
}

// Option configures a pool.
type Option func(*Config)

// WithNumWorkers sets the worker count. Zero means hardware concurrency.
func WithNumWorkers(n int) Option {
	return func(c *Config) { c.NumWorkers = n }
}

// WithWorkerQueueCapacity sets the initial per-worker deque capacity.
func WithWorkerQueueCapacity(n int64) Option {
	return func(c *Config) { c.WorkerQueueCapacity = n }
}

// WithPinWorkers locks workers to OS threads.
func WithPinWorkers(pin bool) Option {
	return func(c *Config) { c.PinWorkers = pin }
}

// WithPanicHandler installs a handler for panicking tasks.
func WithPanicHandler(h func(interface{})) Option {
	return func(c *Config) { c.PanicHandler = h }
}

// WithLogger sets the pool's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func defaultConfig() Config {
	return Config{
		NumWorkers:          0, // resolved to hardware concurrency
		WorkerQueueCapacity: 256,
		Logger:              zap.NewNop(),
	}
}

func (c *Config) validate() error {
	if c.NumWorkers < 0 {
		return errors.Wrap(ErrInvalidConfig, "NumWorkers must be >= 0")
	}
	if c.WorkerQueueCapacity < 0 {
		return errors.Wrap(ErrInvalidConfig, "WorkerQueueCapacity must be >= 0")
	}
	return nil
}

// workerCount resolves the default pool's worker count: the environment
// override if usable, otherwise the hardware concurrency.
func workerCount(logger *zap.Logger) int {
	if s := os.Getenv(EnvNumThreads); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			if n < 1 {
				return 1
			}
			return n
		}
		logger.Warn("ignoring malformed "+EnvNumThreads, zap.String("value", s))
	}
	return hardwareConcurrency(logger)
}

var maxprocsOnce sync.Once

// hardwareConcurrency reports the usable CPU count. maxprocs aligns
// GOMAXPROCS with the container CPU quota first, so a pool inside a
// limited cgroup does not oversubscribe.
func hardwareConcurrency(logger *zap.Logger) int {
	maxprocsOnce.Do(func() {
		if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
			logger.Warn("could not apply CPU quota", zap.Error(err))
		}
	})
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}
