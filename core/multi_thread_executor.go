package core

import "runtime"

// MultiThreadExecutor is an elastic pool of workers sharing one task queue.
//
// It starts empty. Every accepted submission spawns one more worker while
// fewer than the cap are alive, so the pool grows with load and only shrinks
// through Shutdown. Tasks are dequeued in submission order, but with more than
// one worker they may complete in any order.
type MultiThreadExecutor struct {
	*engine
}

// NewMultiThreadExecutor creates a stopped pool capped at maxWorkers.
// If maxWorkers <= 0, defaults to runtime.GOMAXPROCS(0).
func NewMultiThreadExecutor(maxWorkers int, opts ...Option) *MultiThreadExecutor {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	cfg := newConfig("MultiThreadExecutor", opts)
	return &MultiThreadExecutor{engine: newEngine(cfg, "multi_thread", maxWorkers, false)}
}

// MaxWorkers returns the pool cap.
func (p *MultiThreadExecutor) MaxWorkers() int {
	return p.maxWorkers
}
