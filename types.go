package threadexecutor

import (
	"context"
	"iter"

	"github.com/Swind/go-thread-executor/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the threadexecutor package for most use cases.

// Task is the unit of work posted to an event loop
type Task = core.Task

// TaskRunner is the event loop contract: thread-safe PostTask, tasks run on one goroutine
type TaskRunner = core.TaskRunner

// SingleThreadTaskRunner is the built-in event loop
type SingleThreadTaskRunner = core.SingleThreadTaskRunner

// ThreadExecutor runs blocking callables on one dedicated worker
type ThreadExecutor = core.ThreadExecutor

// MultiThreadExecutor is the elastic worker pool
type MultiThreadExecutor = core.MultiThreadExecutor

// Future is the loop-owned result cell returned by every submission
type Future[T any] = core.Future[T]

// Stream consumes a step-producing routine one step at a time
type Stream[T any] = core.Stream[T]

// StepFunc advances a step-producing routine by one step
type StepFunc[T any] = core.StepFunc[T]

// Submitter is satisfied by both executors
type Submitter = core.Submitter

// Option configures an executor
type Option = core.Option

// Errors
var (
	ErrInvalidState    = core.ErrInvalidState
	ErrStreamExhausted = core.ErrStreamExhausted
	ErrCancelled       = core.ErrCancelled
	ErrAwaitOnLoop     = core.ErrAwaitOnLoop
	ErrTaskExited      = core.ErrTaskExited
)

type (
	PanicError = core.PanicError
	ExitError  = core.ExitError
)

// Options
var (
	WithName                = core.WithName
	WithLoop                = core.WithLoop
	WithLogger              = core.WithLogger
	WithMetrics             = core.WithMetrics
	WithPanicHandler        = core.WithPanicHandler
	WithRejectedTaskHandler = core.WithRejectedTaskHandler
	WithRateLimit           = core.WithRateLimit
)

// NewThreadExecutor creates a stopped ThreadExecutor.
func NewThreadExecutor(opts ...Option) *ThreadExecutor {
	return core.NewThreadExecutor(opts...)
}

// NewMultiThreadExecutor creates a stopped pool capped at maxWorkers.
func NewMultiThreadExecutor(maxWorkers int, opts ...Option) *MultiThreadExecutor {
	return core.NewMultiThreadExecutor(maxWorkers, opts...)
}

// NewSingleThreadTaskRunner creates and starts an event loop on a dedicated goroutine.
func NewSingleThreadTaskRunner() *SingleThreadTaskRunner {
	return core.NewSingleThreadTaskRunner()
}

// Submit queues fn on s and returns its Future.
func Submit[T any](s Submitter, fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	return core.Submit(s, fn)
}

// Wrap returns the decorator form of Submit.
func Wrap[A, T any](s Submitter, fn func(ctx context.Context, arg A) (T, error)) func(arg A) (*Future[T], error) {
	return core.Wrap(s, fn)
}

// SubmitStream streams seq, one element per task.
func SubmitStream[T any](s Submitter, seq iter.Seq[T]) (*Stream[T], error) {
	return core.SubmitStream(s, seq)
}

// SubmitSteps streams the values produced by step.
func SubmitSteps[T any](s Submitter, step StepFunc[T]) (*Stream[T], error) {
	return core.SubmitSteps(s, step)
}

// Exit aborts the calling task with an *ExitError carrying code.
func Exit(code int) {
	core.Exit(code)
}

// GetCurrentTaskRunner retrieves the loop running the current task from context
var GetCurrentTaskRunner = core.GetCurrentTaskRunner
