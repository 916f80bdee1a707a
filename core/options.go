package core

import (
	"golang.org/x/time/rate"
)

// Config holds executor configuration.
// All handlers are optional; if not provided, default implementations will be used.
type Config struct {
	// Name labels logs, metrics and worker names.
	Name string

	// Loop is the event loop owning every Future the executor hands out.
	// If nil, the executor creates a SingleThreadTaskRunner at Start and
	// stops it once shutdown completes.
	Loop TaskRunner

	// Logger defaults to NewDefaultLogger.
	Logger Logger

	// PanicHandler is called when a callable panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records executor metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a submission is refused. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// RateLimiter, if set, is waited on by workers before each callable runs.
	RateLimiter *rate.Limiter
}

// Option is a functional option for configuring an executor.
type Option func(*Config)

// WithName sets the executor name.
func WithName(name string) Option {
	return func(cfg *Config) {
		if name != "" {
			cfg.Name = name
		}
	}
}

// WithLoop sets the event loop that owns the executor's futures.
func WithLoop(loop TaskRunner) Option {
	return func(cfg *Config) {
		cfg.Loop = loop
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics Metrics) Option {
	return func(cfg *Config) {
		if metrics != nil {
			cfg.Metrics = metrics
		}
	}
}

// WithPanicHandler sets the panic handler.
func WithPanicHandler(handler PanicHandler) Option {
	return func(cfg *Config) {
		if handler != nil {
			cfg.PanicHandler = handler
		}
	}
}

// WithRejectedTaskHandler sets the rejected task handler.
func WithRejectedTaskHandler(handler RejectedTaskHandler) Option {
	return func(cfg *Config) {
		if handler != nil {
			cfg.RejectedTaskHandler = handler
		}
	}
}

// WithRateLimit caps how many callables the executor starts per second,
// across all of its workers. burst is the number that may start back to back.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *Config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.RateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

func newConfig(defaultName string, opts []Option) *Config {
	cfg := &Config{Name: defaultName}
	for _, opt := range opts {
		opt(cfg)
	}

	// Use defaults if not provided
	if cfg.Logger == nil {
		cfg.Logger = NewDefaultLogger()
	}
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = &DefaultPanicHandler{Logger: cfg.Logger}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NilMetrics{}
	}
	if cfg.RejectedTaskHandler == nil {
		cfg.RejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: cfg.Logger}
	}
	return cfg
}
