package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// SingleThreadTaskRunner is a cooperative event loop: one dedicated goroutine
// runs posted tasks sequentially, in posting order.
//
// It is the default owner of the Futures handed out by the executors. Because
// every bridge write goes through PostTask, code running in loop tasks can read
// and cancel futures without racing the workers.
type SingleThreadTaskRunner struct {
	queue *Queue[Task]

	// Lifecycle control
	ctx    context.Context
	cancel context.CancelFunc

	// For graceful shutdown
	stopped      chan struct{}
	closed       atomic.Bool
	shutdownChan chan struct{}
	shutdownOnce sync.Once

	logger   Logger
	executed atomic.Int64
	rejected atomic.Int64

	// Metadata
	name string
	mu   sync.Mutex
}

var _ ClosableRunner = (*SingleThreadTaskRunner)(nil)

// NewSingleThreadTaskRunner creates and starts a new SingleThreadTaskRunner.
// It immediately spawns a dedicated goroutine for task execution.
func NewSingleThreadTaskRunner() *SingleThreadTaskRunner {
	return NewSingleThreadTaskRunnerWithLogger(NewDefaultLogger())
}

// NewSingleThreadTaskRunnerWithLogger is NewSingleThreadTaskRunner with a
// logger for panics raised by loop tasks.
func NewSingleThreadTaskRunnerWithLogger(logger Logger) *SingleThreadTaskRunner {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &SingleThreadTaskRunner{
		queue:        NewQueue[Task](),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		shutdownChan: make(chan struct{}),
		logger:       logger,
		name:         "loop",
	}

	// Start the dedicated message loop
	go r.runLoop()

	return r
}

// Name returns the name of the task runner
func (r *SingleThreadTaskRunner) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// SetName sets the name of the task runner
func (r *SingleThreadTaskRunner) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
}

// PostTask queues a task for the loop goroutine. It never blocks.
// Tasks posted after Shutdown are dropped.
func (r *SingleThreadTaskRunner) PostTask(task Task) {
	if r.closed.Load() {
		r.rejected.Add(1)
		return
	}
	r.queue.Push(task)
}

// PostDelayedTask posts task once delay has elapsed.
// Uses time.AfterFunc, the timer goroutine only re-posts the task.
func (r *SingleThreadTaskRunner) PostDelayedTask(task Task, delay time.Duration) {
	if r.closed.Load() {
		r.rejected.Add(1)
		return
	}
	time.AfterFunc(delay, func() {
		r.PostTask(task)
	})
}

// Shutdown stops the runner from accepting tasks. Tasks already queued still
// run, then the loop goroutine exits. Shutdown does not wait, so it can be
// called from a task running on the loop.
func (r *SingleThreadTaskRunner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.closed.Store(true)
		r.cancel()
		close(r.shutdownChan)
	})
}

// IsClosed returns true once Shutdown or Stop has been called.
func (r *SingleThreadTaskRunner) IsClosed() bool {
	return r.closed.Load()
}

// Stop shuts the runner down and waits for the loop goroutine to exit.
// It must not be called from a task running on this loop.
func (r *SingleThreadTaskRunner) Stop() {
	r.Shutdown()
	<-r.stopped
}

// Stopped returns a channel closed when the loop goroutine has exited.
func (r *SingleThreadTaskRunner) Stopped() <-chan struct{} {
	return r.stopped
}

// Stats returns a snapshot of the loop.
func (r *SingleThreadTaskRunner) Stats() RunnerStats {
	return RunnerStats{
		Name:     r.Name(),
		Type:     "single_thread",
		Pending:  r.queue.Len(),
		Executed: r.executed.Load(),
		Rejected: r.rejected.Load(),
		Closed:   r.IsClosed(),
	}
}

// runLoop is the core of this runner, it occupies a dedicated goroutine
func (r *SingleThreadTaskRunner) runLoop() {
	defer close(r.stopped)

	// Tasks see a context that outlives Shutdown so drained tasks are not
	// handed a cancelled context.
	runCtx := WithTaskRunner(context.Background(), r)

	for {
		task, ok := r.queue.Pop(r.ctx.Done())
		if !ok {
			break
		}
		r.runTask(runCtx, task)
	}

	// Posts racing Shutdown may still have landed.
	for {
		task, ok := r.queue.TryPop()
		if !ok {
			return
		}
		r.runTask(runCtx, task)
	}
}

func (r *SingleThreadTaskRunner) runTask(ctx context.Context, task Task) {
	defer func() {
		r.executed.Add(1)
		if rec := recover(); rec != nil {
			r.logger.Error("loop task panicked",
				F("runner", r.Name()),
				F("panic", rec),
				F("stack", string(debug.Stack())),
			)
		}
	}()
	task(ctx)
}

// =============================================================================
// Synchronization Methods
// =============================================================================

// WaitIdle blocks until all currently queued tasks have completed execution.
// This is implemented by posting a barrier task and waiting for it to execute.
//
// Returns error if:
// - Context is cancelled or deadline exceeded
// - Runner is closed when WaitIdle is called
//
// Note: Tasks posted after WaitIdle is called are not waited for.
func (r *SingleThreadTaskRunner) WaitIdle(ctx context.Context) error {
	if r.IsClosed() {
		return fmt.Errorf("runner is closed")
	}

	done := make(chan struct{})

	// Post a barrier task that closes the done channel
	r.PostTask(func(taskCtx context.Context) {
		close(done)
	})

	// Wait for barrier task or context cancellation
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitShutdown blocks until Shutdown() is called on this runner.
//
// Returns error if context is cancelled or deadline exceeded.
func (r *SingleThreadTaskRunner) WaitShutdown(ctx context.Context) error {
	select {
	case <-r.shutdownChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
