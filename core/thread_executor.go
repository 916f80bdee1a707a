package core

// ThreadExecutor runs callables on one dedicated worker goroutine, in
// submission order, and delivers each outcome to its loop as a Future.
//
// Use cases:
// 1. Blocking IO called from loop code (file reads, DNS, legacy clients)
// 2. Libraries that are not safe for concurrent use
// 3. CGO calls that must not run on the loop goroutine
type ThreadExecutor struct {
	*engine
}

// NewThreadExecutor creates a stopped ThreadExecutor. Call Start before
// submitting work.
func NewThreadExecutor(opts ...Option) *ThreadExecutor {
	cfg := newConfig("ThreadExecutor", opts)
	return &ThreadExecutor{engine: newEngine(cfg, "thread", 1, true)}
}
