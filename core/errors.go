package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an executor is asked to do something its
	// lifecycle does not allow: submitting before Start or after Shutdown.
	ErrInvalidState = errors.New("invalid executor state")

	// ErrStreamExhausted signals that a step-producing routine has no more steps.
	// Returned from a step function it ends the stream cleanly.
	ErrStreamExhausted = errors.New("stream exhausted")

	// ErrCancelled is reported by a Future that was cancelled before it resolved.
	ErrCancelled = errors.New("future cancelled")

	// ErrPending is reported by Future.Result while the future is unresolved.
	ErrPending = errors.New("future pending")

	// ErrAwaitOnLoop is returned by Future.Await when called from a task running
	// on the future's own loop. The loop could never deliver the result.
	ErrAwaitOnLoop = errors.New("await called on the owning loop")

	// ErrTaskExited is the failure of a callable that terminated its goroutine
	// with runtime.Goexit instead of returning.
	ErrTaskExited = errors.New("task exited its worker goroutine")
)

var (
	errSubmitBeforeStart   = fmt.Errorf("%w: calling Submit() before Start()", ErrInvalidState)
	errSubmitAfterShutdown = fmt.Errorf("%w: calling Submit() after Shutdown()", ErrInvalidState)
)

// PanicError wraps a value recovered from a panicking callable.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ExitError is the failure produced by Exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Exit aborts the calling task with an ExitError carrying code. Unlike os.Exit
// the process keeps running: the worker recovers and the task's Future fails
// with *ExitError. Exit must only be called from a callable running on a worker.
func Exit(code int) {
	panic(&ExitError{Code: code})
}
