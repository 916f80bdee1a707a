// Package goeventloop lets a github.com/joeycumines/go-eventloop Loop own the
// futures of a thread executor.
//
// The loop's Submit is used as the thread-safe dispatch primitive, so every
// outcome computed on a worker is written on the loop goroutine:
//
//	loop, err := eventloop.New()
//	if err != nil {
//		return err
//	}
//	go loop.Run(ctx)
//
//	executor := core.NewThreadExecutor(core.WithLoop(goeventloop.NewRunner(loop, nil)))
package goeventloop

import (
	"context"
	"time"

	"github.com/Swind/go-thread-executor/core"
	eventloop "github.com/joeycumines/go-eventloop"
)

// Runner adapts an *eventloop.Loop to core.TaskRunner.
type Runner struct {
	loop   *eventloop.Loop
	logger core.Logger
}

var _ core.ClosableRunner = (*Runner)(nil)

// NewRunner wraps loop. Tasks the loop refuses (it has terminated) are
// logged through logger and dropped; a nil logger discards them silently.
func NewRunner(loop *eventloop.Loop, logger core.Logger) *Runner {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &Runner{loop: loop, logger: logger}
}

// Loop returns the wrapped loop.
func (r *Runner) Loop() *eventloop.Loop {
	return r.loop
}

// PostTask submits task to the loop's external queue.
func (r *Runner) PostTask(task core.Task) {
	ctx := core.WithTaskRunner(context.Background(), r)
	if err := r.loop.Submit(func() {
		task(ctx)
	}); err != nil {
		r.logger.Warn("event loop rejected task", core.F("error", err))
	}
}

// PostDelayedTask schedules task on the loop's own timers.
func (r *Runner) PostDelayedTask(task core.Task, delay time.Duration) {
	ctx := core.WithTaskRunner(context.Background(), r)
	if _, err := r.loop.ScheduleTimer(delay, func() {
		task(ctx)
	}); err != nil {
		r.logger.Warn("event loop rejected timer", core.F("error", err), core.F("delay", delay))
	}
}

// IsClosed reports whether the loop has terminated and drops every post.
func (r *Runner) IsClosed() bool {
	return r.loop.State() == eventloop.StateTerminated
}
