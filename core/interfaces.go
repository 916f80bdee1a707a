package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a callable panics on a worker.
// The panic is also delivered to the task's Future as a *PanicError.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a callable panics.
	//
	// Parameters:
	// - ctx: The context the callable was running with (carries WorkerInfo)
	// - executorName: The name of the executor owning the worker
	// - workerID: The ID of the worker goroutine
	// - panicInfo: The panic value recovered from the callable
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, executorName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, executorName string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("task panicked",
		F("executor", executorName),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Outcome is how a task's Future was settled by the completion bridge.
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeFailed   Outcome = "failed"
	// OutcomeExhausted is a stream step whose routine had no more steps.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeDropped is an outcome discarded because the Future was already
	// cancelled by its consumer.
	OutcomeDropped Outcome = "dropped"
)

// Metrics defines the interface for collecting executor metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a callable ran on its worker.
	RecordTaskDuration(executorName string, duration time.Duration)

	// RecordTaskOutcome records how the completion bridge settled a task.
	// It is called on the loop goroutine.
	RecordTaskOutcome(executorName string, outcome Outcome)

	// RecordTaskPanic records that a callable panicked during execution.
	RecordTaskPanic(executorName string, panicInfo any)

	// RecordQueueDepth records the task queue depth after a submission.
	RecordQueueDepth(executorName string, depth int)

	// RecordTaskRejected records a submission refused by the executor.
	RecordTaskRejected(executorName string, reason string)

	// RecordWorkerCount records the live worker count whenever it changes.
	RecordWorkerCount(executorName string, workers int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(executorName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskOutcome(executorName string, outcome Outcome)          {}
func (m *NilMetrics) RecordTaskPanic(executorName string, panicInfo any)              {}
func (m *NilMetrics) RecordQueueDepth(executorName string, depth int)                 {}
func (m *NilMetrics) RecordTaskRejected(executorName string, reason string)           {}
func (m *NilMetrics) RecordWorkerCount(executorName string, workers int)              {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a submission is refused, which happens
// before Start and once Shutdown has been initiated. The caller also receives
// an ErrInvalidState error; the handler exists for logging and accounting.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(executorName string, reason string)
}

// DefaultRejectedTaskHandler logs rejected submissions at warn level.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(executorName string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("task rejected", F("executor", executorName), F("reason", reason))
}
