package core

import (
	"context"
	"time"
)

// Task is the unit of work posted to a loop (Closure)
type Task func(ctx context.Context)

// =============================================================================
// TaskRunner: the event loop contract
// =============================================================================

// TaskRunner is the owning event loop of a Future. PostTask is the loop's
// thread-safe dispatch primitive: it may be called from any goroutine and the
// task runs later on the loop goroutine, serialized with every other task.
type TaskRunner interface {
	PostTask(task Task)
	PostDelayedTask(task Task, delay time.Duration)
}

// ClosableRunner is a TaskRunner that reports when it no longer runs posted
// tasks. Executors resolve their shutdown future directly on such a loop
// instead of posting into it.
type ClosableRunner interface {
	TaskRunner
	IsClosed() bool
}

// =============================================================================
// Context Helper
// =============================================================================
type taskRunnerKeyType struct{}

var taskRunnerKey taskRunnerKeyType

// WithTaskRunner marks ctx as belonging to a task running on runner.
// Loop implementations call it for the context they hand to tasks.
func WithTaskRunner(ctx context.Context, runner TaskRunner) context.Context {
	return context.WithValue(ctx, taskRunnerKey, runner)
}

// GetCurrentTaskRunner returns the loop running the current task, or nil.
func GetCurrentTaskRunner(ctx context.Context) TaskRunner {
	if v := ctx.Value(taskRunnerKey); v != nil {
		return v.(TaskRunner)
	}
	return nil
}

// WorkerInfo identifies the worker goroutine executing a callable.
type WorkerInfo struct {
	ID       int
	Name     string
	Executor string
}

type workerKeyType struct{}

var workerKey workerKeyType

// WorkerFromContext returns the worker executing the current callable.
func WorkerFromContext(ctx context.Context) (WorkerInfo, bool) {
	info, ok := ctx.Value(workerKey).(WorkerInfo)
	return info, ok
}
