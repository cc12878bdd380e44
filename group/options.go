package group

import "github.com/tahsin716/strand"

// ErrorMode defines how the Group handles errors from tasks.
type ErrorMode int

const (
	// FailFast cancels the group on the first error and returns it.
	FailFast ErrorMode = iota
	// CollectAll collects every error and returns them as an aggregate.
	CollectAll
	// IgnoreErrors discards all task errors.
	IgnoreErrors
)

// Config holds configuration for a Group.
type Config struct {
	errorMode ErrorMode
	scheduler strand.Scheduler
}

// Option configures a Group.
type Option func(*Config)

// DefaultConfig returns the default configuration: CollectAll, with
// tasks going to the default pool. The pool is only materialized when
// the first task is actually scheduled.
func DefaultConfig() Config {
	return Config{
		errorMode: CollectAll,
	}
}

// WithErrorMode sets how errors are handled.
func WithErrorMode(mode ErrorMode) Option {
	return func(c *Config) {
		c.errorMode = mode
	}
}

// WithScheduler runs the group's tasks on s instead of the default
// pool.
func WithScheduler(s strand.Scheduler) Option {
	return func(c *Config) {
		c.scheduler = s
	}
}
