package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := newConfig("ThreadExecutor", nil)

	assert.Equal(t, "ThreadExecutor", cfg.Name)
	assert.Nil(t, cfg.Loop)
	assert.IsType(t, &ZerologLogger{}, cfg.Logger)
	assert.IsType(t, &DefaultPanicHandler{}, cfg.PanicHandler)
	assert.IsType(t, &NilMetrics{}, cfg.Metrics)
	assert.IsType(t, &DefaultRejectedTaskHandler{}, cfg.RejectedTaskHandler)
	assert.Nil(t, cfg.RateLimiter)
}

func TestNewConfig_Options(t *testing.T) {
	loop := newTestLoop(t)
	metrics := newRecordingMetrics()

	cfg := newConfig("ThreadExecutor", []Option{
		WithName("io"),
		WithName(""),
		WithLoop(loop),
		WithLogger(nil),
		WithMetrics(metrics),
		WithRateLimit(10, 5),
	})

	assert.Equal(t, "io", cfg.Name)
	assert.Same(t, loop, cfg.Loop)
	assert.NotNil(t, cfg.Logger)
	assert.Same(t, metrics, cfg.Metrics)
	if assert.NotNil(t, cfg.RateLimiter) {
		assert.Equal(t, rate.Limit(10), cfg.RateLimiter.Limit())
		assert.Equal(t, 5, cfg.RateLimiter.Burst())
	}
}

func TestWithRateLimit_IgnoresInvalid(t *testing.T) {
	cfg := newConfig("x", []Option{WithRateLimit(0, 1), WithRateLimit(5, 0)})
	assert.Nil(t, cfg.RateLimiter)
}

func TestExecutorState_String(t *testing.T) {
	assert.Equal(t, "new", StateNew.String())
	assert.Equal(t, "growing", StateGrowing.String())
	assert.Equal(t, "drained", StateDrained.String())
	assert.Equal(t, "unknown", ExecutorState(99).String())
}
