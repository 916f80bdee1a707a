package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// taskFunc is a callable with its arguments already bound.
type taskFunc func(ctx context.Context) (any, error)

// settleFunc hands a callable's outcome to the completion bridge.
type settleFunc func(value any, err error)

// taskRecord is one entry of the task queue. A record without a callable is a
// stop signal; exactly one worker consumes each stop signal.
type taskRecord struct {
	call   taskFunc
	settle settleFunc
}

func (r taskRecord) isStop() bool {
	return r.call == nil
}

// recordBuilder creates the record for a submission once the executor has
// accepted it, so the Future can be bound to the executor's loop.
type recordBuilder func(loop TaskRunner, report func(Outcome)) taskRecord

// Submitter is implemented by ThreadExecutor and MultiThreadExecutor and
// accepted by the generic submission functions.
type Submitter interface {
	// Loop returns the loop owning the executor's futures, nil until Start or Shutdown.
	Loop() TaskRunner

	dispatch(build recordBuilder) error
	accepting() error
}

type lifecycle int32

const (
	lifecycleNew lifecycle = iota
	lifecycleRunning
	lifecycleDraining
	lifecycleDrained
)

type worker struct {
	info WorkerInfo
	ctx  context.Context
}

// engine is the worker registry, task queue and shutdown state machine shared
// by both executors. eager engines spawn every worker in Start; lazy engines
// spawn one worker per submission until maxWorkers are alive.
type engine struct {
	cfg        *Config
	kind       string
	maxWorkers int
	eager      bool
	queue      *Queue[taskRecord]

	mu        sync.Mutex // guards everything below up to wg
	lifecycle lifecycle
	loop      TaskRunner
	ownedLoop *SingleThreadTaskRunner
	workers   map[int]*worker
	nextID    int
	shutdown  *Future[struct{}]
	wg        sync.WaitGroup

	spawned   atomic.Int64
	active    atomic.Int32
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
}

func newEngine(cfg *Config, kind string, maxWorkers int, eager bool) *engine {
	return &engine{
		cfg:        cfg,
		kind:       kind,
		maxWorkers: maxWorkers,
		eager:      eager,
		queue:      NewQueue[taskRecord](),
		workers:    make(map[int]*worker),
	}
}

// Name returns the executor name.
func (e *engine) Name() string {
	return e.cfg.Name
}

// Loop returns the loop owning the executor's futures, nil until Start or Shutdown.
func (e *engine) Loop() TaskRunner {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop
}

// Start begins accepting work. It is idempotent and does nothing once
// Shutdown has been called.
func (e *engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lifecycle != lifecycleNew {
		return
	}

	e.bindLoopLocked()
	e.lifecycle = lifecycleRunning

	if e.eager {
		for len(e.workers) < e.maxWorkers {
			e.spawnLocked()
		}
	}

	e.cfg.Logger.Info("executor started",
		F("executor", e.cfg.Name),
		F("type", e.kind),
		F("max_workers", e.maxWorkers),
	)
}

// bindLoopLocked selects the loop owning the executor's futures, creating one
// when none was configured, and creates the shutdown future on it.
func (e *engine) bindLoopLocked() {
	if e.cfg.Loop != nil {
		e.loop = e.cfg.Loop
	} else {
		owned := NewSingleThreadTaskRunnerWithLogger(e.cfg.Logger)
		owned.SetName(e.cfg.Name + ".loop")
		e.loop = owned
		e.ownedLoop = owned
	}
	e.shutdown = NewFuture[struct{}](e.loop)
}

// Submit queues fn and returns its Future without waiting for it to run.
// It fails with ErrInvalidState before Start and after Shutdown.
func (e *engine) Submit(fn func(ctx context.Context) (any, error)) (*Future[any], error) {
	return submit(e, fn, false)
}

// Shutdown stops the executor from accepting work and lets the workers drain
// the queue. It returns the shutdown future, resolved once every worker has
// exited. Calling it again returns the same future. Called before Start, no
// worker is alive, so the future resolves right away and Start becomes a no-op.
func (e *engine) Shutdown() (*Future[struct{}], error) {
	e.mu.Lock()

	finish := false
	switch e.lifecycle {
	case lifecycleNew:
		e.bindLoopLocked()
		e.lifecycle = lifecycleDrained
		finish = true
		e.cfg.Logger.Info("executor shut down before start", F("executor", e.cfg.Name))
	case lifecycleRunning:
		if len(e.workers) == 0 {
			e.lifecycle = lifecycleDrained
			finish = true
		} else {
			// One stop signal; each exiting worker relays it while others remain.
			e.lifecycle = lifecycleDraining
			e.queue.Push(taskRecord{})
		}
		e.cfg.Logger.Info("executor shutting down",
			F("executor", e.cfg.Name),
			F("workers", len(e.workers)),
			F("queued", e.queue.Len()),
		)
	}
	cell := e.shutdown
	e.mu.Unlock()

	if finish {
		go e.finishShutdown()
	}
	return cell, nil
}

// Do is the scoped form: it starts the executor, runs fn, then shuts the
// executor down and waits for the shutdown future on every exit path,
// including a panic in fn. The wait ignores ctx cancellation.
func (e *engine) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	e.Start()
	defer func() {
		cell, shutdownErr := e.Shutdown()
		if shutdownErr != nil {
			err = errors.Join(err, shutdownErr)
			return
		}
		_, waitErr := cell.Await(context.WithoutCancel(ctx))
		err = errors.Join(err, waitErr)
	}()
	return fn(ctx)
}

// State returns the lifecycle state.
func (e *engine) State() ExecutorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *engine) stateLocked() ExecutorState {
	switch e.lifecycle {
	case lifecycleNew:
		return StateNew
	case lifecycleDraining:
		return StateDraining
	case lifecycleDrained:
		return StateDrained
	}
	switch n := len(e.workers); {
	case n == 0:
		return StateEmpty
	case n < e.maxWorkers:
		return StateGrowing
	default:
		return StateSteady
	}
}

// Stats returns a snapshot of the executor.
func (e *engine) Stats() ExecutorStats {
	e.mu.Lock()
	state := e.stateLocked()
	workers := len(e.workers)
	e.mu.Unlock()

	return ExecutorStats{
		Name:       e.cfg.Name,
		Type:       e.kind,
		State:      state,
		Workers:    workers,
		MaxWorkers: e.maxWorkers,
		Spawned:    e.spawned.Load(),
		Queued:     e.queue.Len(),
		Active:     int(e.active.Load()),
		Submitted:  e.submitted.Load(),
		Completed:  e.completed.Load(),
		Failed:     e.failed.Load(),
		Rejected:   e.rejected.Load(),
	}
}

func (e *engine) accepting() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acceptingLocked()
}

func (e *engine) acceptingLocked() error {
	switch e.lifecycle {
	case lifecycleNew:
		return errSubmitBeforeStart
	case lifecycleRunning:
		return nil
	default:
		return errSubmitAfterShutdown
	}
}

func (e *engine) dispatch(build recordBuilder) error {
	e.mu.Lock()
	if err := e.acceptingLocked(); err != nil {
		e.mu.Unlock()
		e.reject(err)
		return err
	}

	e.queue.Push(build(e.loop, e.recordOutcome))
	e.submitted.Add(1)

	if !e.eager && len(e.workers) < e.maxWorkers {
		e.spawnLocked()
	}
	depth := e.queue.Len()
	e.mu.Unlock()

	e.cfg.Metrics.RecordQueueDepth(e.cfg.Name, depth)
	return nil
}

func (e *engine) reject(err error) {
	reason := "shutdown"
	if errors.Is(err, errSubmitBeforeStart) {
		reason = "not started"
	}
	e.rejected.Add(1)
	e.cfg.RejectedTaskHandler.HandleRejectedTask(e.cfg.Name, reason)
	e.cfg.Metrics.RecordTaskRejected(e.cfg.Name, reason)
}

func (e *engine) recordOutcome(outcome Outcome) {
	e.cfg.Metrics.RecordTaskOutcome(e.cfg.Name, outcome)
}

// spawnLocked registers and starts one worker. e.mu must be held.
func (e *engine) spawnLocked() {
	id := e.nextID
	e.nextID++

	info := WorkerInfo{
		ID:       id,
		Name:     fmt.Sprintf("%s.%d", e.cfg.Name, id),
		Executor: e.cfg.Name,
	}
	w := &worker{
		info: info,
		ctx:  context.WithValue(context.Background(), workerKey, info),
	}
	e.workers[id] = w
	e.spawned.Add(1)
	e.wg.Add(1)
	go e.runWorker(w)

	e.cfg.Metrics.RecordWorkerCount(e.cfg.Name, len(e.workers))
	e.cfg.Logger.Debug("worker spawned", F("worker", info.Name), F("workers", len(e.workers)))
}

// runWorker is the worker loop: dequeue, execute, settle, until a stop signal.
func (e *engine) runWorker(w *worker) {
	defer e.wg.Done()

	stopped := false
	defer func() {
		e.workerExited(w, stopped)
	}()

	for {
		task, _ := e.queue.Pop(nil)
		if task.isStop() {
			stopped = true
			return
		}
		e.execute(w, task)
	}
}

// execute runs one callable and passes its outcome to the bridge. Panics become
// *PanicError (or the *ExitError raised by Exit); a callable that calls
// runtime.Goexit still settles its future, with ErrTaskExited.
func (e *engine) execute(w *worker, task taskRecord) {
	if limiter := e.cfg.RateLimiter; limiter != nil {
		// Only fails for a burst of zero, which WithRateLimit never builds.
		_ = limiter.Wait(w.ctx)
	}

	e.active.Add(1)
	start := time.Now()

	var (
		value    any
		err      error
		returned bool
	)
	defer func() {
		if r := recover(); r != nil {
			err = e.recoverTask(w, r)
		} else if !returned {
			err = ErrTaskExited
		}

		e.active.Add(-1)
		e.completed.Add(1)
		if err != nil {
			e.failed.Add(1)
		}
		e.cfg.Metrics.RecordTaskDuration(e.cfg.Name, time.Since(start))

		task.settle(value, err)
	}()

	value, err = task.call(w.ctx)
	returned = true
}

func (e *engine) recoverTask(w *worker, r any) error {
	if exit, ok := r.(*ExitError); ok {
		return exit
	}
	stack := debug.Stack()
	e.cfg.PanicHandler.HandlePanic(w.ctx, e.cfg.Name, w.info.ID, r, stack)
	e.cfg.Metrics.RecordTaskPanic(e.cfg.Name, r)
	return &PanicError{Value: r, Stack: stack}
}

// workerExited deregisters w. While draining, a worker that consumed the stop
// signal passes it on if others are still alive; the last one out finishes the
// shutdown. A worker lost while running (runtime.Goexit in a callable) is
// always replaced, so a pool never shrinks before Shutdown.
func (e *engine) workerExited(w *worker, stopped bool) {
	e.mu.Lock()
	delete(e.workers, w.info.ID)
	remaining := len(e.workers)

	relay, finish := false, false
	switch e.lifecycle {
	case lifecycleDraining:
		if !stopped && !e.queue.IsEmpty() {
			// The stop signal is still queued behind work nobody would run.
			e.spawnLocked()
			remaining = len(e.workers)
		}
		if remaining == 0 {
			e.lifecycle = lifecycleDrained
			finish = true
		} else if stopped {
			relay = true
		}
	case lifecycleRunning:
		e.spawnLocked()
	}
	e.cfg.Metrics.RecordWorkerCount(e.cfg.Name, len(e.workers))
	e.mu.Unlock()

	if !stopped {
		e.cfg.Logger.Warn("worker exited abnormally", F("worker", w.info.Name))
	} else {
		e.cfg.Logger.Debug("worker stopped", F("worker", w.info.Name), F("remaining", remaining))
	}

	if relay {
		e.queue.Push(taskRecord{})
	}
	if finish {
		go e.finishShutdown()
	}
}

// finishShutdown resolves the shutdown future once every worker goroutine has
// returned, then stops the loop if the executor created it. A loop that was
// closed before the executor finished can no longer run tasks, so the future is
// resolved on the calling goroutine instead.
func (e *engine) finishShutdown() {
	e.wg.Wait()
	e.queue.Clear()

	e.mu.Lock()
	cell := e.shutdown
	loop := e.loop
	owned := e.ownedLoop
	e.mu.Unlock()

	e.cfg.Logger.Info("executor drained",
		F("executor", e.cfg.Name),
		F("completed", e.completed.Load()),
		F("failed", e.failed.Load()),
	)

	if closable, ok := loop.(ClosableRunner); ok && closable.IsClosed() {
		e.cfg.Logger.Warn("loop closed before executor drained", F("executor", e.cfg.Name))
		cell.resolve(WithTaskRunner(context.Background(), loop), struct{}{})
		return
	}

	loop.PostTask(func(ctx context.Context) {
		cell.resolve(ctx, struct{}{})
		if owned != nil {
			owned.Shutdown()
		}
	})
}
