package threadexecutor

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-thread-executor/core"
)

// =============================================================================
// Global Executor Helper (Singleton)
// =============================================================================

var (
	globalExecutor *MultiThreadExecutor
	globalMu       sync.Mutex
)

// InitGlobalExecutor initializes the global pool capped at maxWorkers.
// It starts the pool immediately. Calling it again is a no-op until
// ShutdownGlobalExecutor has been called.
func InitGlobalExecutor(maxWorkers int, opts ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor != nil {
		return // Already initialized
	}

	opts = append([]Option{WithName("global")}, opts...)
	globalExecutor = NewMultiThreadExecutor(maxWorkers, opts...)
	globalExecutor.Start()
}

// GetGlobalExecutor returns the global pool.
// It panics if InitGlobalExecutor has not been called.
func GetGlobalExecutor() *MultiThreadExecutor {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalExecutor == nil {
		panic("GlobalExecutor not initialized. Call InitGlobalExecutor() first.")
	}
	return globalExecutor
}

// ShutdownGlobalExecutor shuts the global pool down and waits up to timeout
// for queued work to drain. A non-positive timeout waits indefinitely.
func ShutdownGlobalExecutor(timeout time.Duration) error {
	globalMu.Lock()
	executor := globalExecutor
	globalExecutor = nil
	globalMu.Unlock()

	if executor == nil {
		return nil
	}

	cell, err := executor.Shutdown()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	_, err = cell.Await(ctx)
	return err
}

// Go submits fn to the global pool.
// This is the recommended way to move a one-off blocking call off a loop.
func Go[T any](fn func(ctx context.Context) (T, error)) (*Future[T], error) {
	return core.Submit(GetGlobalExecutor(), fn)
}

// CreateThreadExecutor creates and starts a ThreadExecutor whose futures are
// owned by the global pool's loop, so results from both can be combined on
// one loop goroutine. Shut it down before ShutdownGlobalExecutor, which stops
// that loop.
func CreateThreadExecutor(name string, opts ...Option) *ThreadExecutor {
	loop := GetGlobalExecutor().Loop()
	opts = append([]Option{WithName(name), WithLoop(loop)}, opts...)
	executor := NewThreadExecutor(opts...)
	executor.Start()
	return executor
}
