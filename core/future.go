package core

import (
	"context"
	"sync"
	"time"
)

// FutureState is the lifecycle state of a Future.
type FutureState int32

const (
	FuturePending FutureState = iota
	FutureResolved
	FutureFailed
	FutureCancelled
)

func (s FutureState) String() string {
	switch s {
	case FuturePending:
		return "pending"
	case FutureResolved:
		return "resolved"
	case FutureFailed:
		return "failed"
	case FutureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CompletionCallback receives the outcome of a Future on its loop goroutine.
// A cancelled future reports ErrCancelled.
type CompletionCallback[T any] func(ctx context.Context, value T, err error)

// Future is a single-assignment result cell owned by an event loop.
//
// At most one terminal transition ever happens. Outcomes computed on worker
// goroutines are written through the loop's PostTask, so a Future cancelled by
// its consumer first keeps its cancelled state and the late write is dropped.
type Future[T any] struct {
	loop TaskRunner

	mu        sync.Mutex
	state     FutureState
	value     T
	err       error
	done      chan struct{}
	callbacks []CompletionCallback[T]
}

// NewFuture creates a pending Future owned by loop.
func NewFuture[T any](loop TaskRunner) *Future[T] {
	return &Future[T]{
		loop: loop,
		done: make(chan struct{}),
	}
}

// Loop returns the loop owning this future.
func (f *Future[T]) Loop() TaskRunner {
	return f.loop
}

// Done returns a channel closed once the future leaves the pending state.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// State returns the current state.
func (f *Future[T]) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsDone reports whether the future is resolved, failed or cancelled.
func (f *Future[T]) IsDone() bool {
	return f.State() != FuturePending
}

// Result returns the outcome without blocking.
// It returns ErrPending while pending and ErrCancelled once cancelled.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero T
	switch f.state {
	case FutureResolved:
		return f.value, nil
	case FutureFailed:
		return zero, f.err
	case FutureCancelled:
		return zero, ErrCancelled
	default:
		return zero, ErrPending
	}
}

// Await blocks until the future settles or ctx is done.
//
// A ctx ending first returns ctx.Err() and leaves the future untouched; use
// CancelAfter to cancel on a timeout. Await returns ErrAwaitOnLoop when ctx
// belongs to a task running on the future's own loop, since blocking that loop
// would keep the result from ever being delivered.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if runner := GetCurrentTaskRunner(ctx); runner != nil && runner == f.loop {
		var zero T
		return zero, ErrAwaitOnLoop
	}

	select {
	case <-f.done:
		return f.Result()
	default:
	}

	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers cb to run on the loop goroutine once the future settles.
// If it has already settled, cb is posted immediately.
func (f *Future[T]) OnComplete(cb CompletionCallback[T]) {
	f.mu.Lock()
	if f.state == FuturePending {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	value, err := f.Result()
	f.loop.PostTask(func(ctx context.Context) {
		cb(ctx, value, err)
	})
}

// Cancel moves a pending future to the cancelled state. It is safe to call from
// any goroutine and any number of times; only the call that performed the
// transition returns true. Work already running for the future is not
// interrupted, its eventual outcome is discarded.
func (f *Future[T]) Cancel() bool {
	var zero T
	callbacks, ok := f.settle(FutureCancelled, zero, nil)
	if !ok {
		return false
	}
	if len(callbacks) > 0 {
		f.loop.PostTask(func(ctx context.Context) {
			runCallbacks(ctx, callbacks, zero, ErrCancelled)
		})
	}
	return true
}

// CancelAfter cancels the future if it is still pending after d. The timer
// runs on the owning loop, racing the outcome delivered by the worker.
func (f *Future[T]) CancelAfter(d time.Duration) {
	f.loop.PostDelayedTask(func(ctx context.Context) {
		f.cancelOnLoop(ctx)
	}, d)
}

// resolve, reject and cancelOnLoop must run on the loop goroutine.

func (f *Future[T]) resolve(ctx context.Context, value T) bool {
	callbacks, ok := f.settle(FutureResolved, value, nil)
	if ok {
		runCallbacks(ctx, callbacks, value, nil)
	}
	return ok
}

func (f *Future[T]) reject(ctx context.Context, err error) bool {
	var zero T
	callbacks, ok := f.settle(FutureFailed, zero, err)
	if ok {
		runCallbacks(ctx, callbacks, zero, err)
	}
	return ok
}

func (f *Future[T]) cancelOnLoop(ctx context.Context) bool {
	var zero T
	callbacks, ok := f.settle(FutureCancelled, zero, nil)
	if ok {
		runCallbacks(ctx, callbacks, zero, ErrCancelled)
	}
	return ok
}

// settle is the check-then-set for the single terminal transition.
func (f *Future[T]) settle(state FutureState, value T, err error) ([]CompletionCallback[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FuturePending {
		return nil, false
	}
	f.state = state
	f.value = value
	f.err = err
	close(f.done)

	callbacks := f.callbacks
	f.callbacks = nil
	return callbacks, true
}

func runCallbacks[T any](ctx context.Context, callbacks []CompletionCallback[T], value T, err error) {
	for _, cb := range callbacks {
		cb(ctx, value, err)
	}
}
