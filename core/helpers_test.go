package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

// awaitFuture waits for f with a test-sized timeout.
func awaitFuture[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	return f.Await(ctx)
}

// shutdownAndWait shuts e down and waits for the shutdown future.
func shutdownAndWait(t *testing.T, e *engine) {
	t.Helper()
	cell, err := e.Shutdown()
	if err != nil {
		return
	}
	_, err = awaitFuture(t, cell)
	require.NoError(t, err)
}

func startThreadExecutor(t *testing.T, opts ...Option) *ThreadExecutor {
	t.Helper()
	ex := NewThreadExecutor(append([]Option{WithLogger(NewNoOpLogger())}, opts...)...)
	ex.Start()
	t.Cleanup(func() { shutdownAndWait(t, ex.engine) })
	return ex
}

func startMultiThreadExecutor(t *testing.T, maxWorkers int, opts ...Option) *MultiThreadExecutor {
	t.Helper()
	ex := NewMultiThreadExecutor(maxWorkers, append([]Option{WithLogger(NewNoOpLogger())}, opts...)...)
	ex.Start()
	t.Cleanup(func() { shutdownAndWait(t, ex.engine) })
	return ex
}

func newTestLoop(t *testing.T) *SingleThreadTaskRunner {
	t.Helper()
	loop := NewSingleThreadTaskRunnerWithLogger(NewNoOpLogger())
	t.Cleanup(loop.Stop)
	return loop
}

// =============================================================================
// Recording collaborators
// =============================================================================

type recordingMetrics struct {
	mu           sync.Mutex
	durations    int
	outcomes     map[Outcome]int
	panics       []any
	depths       []int
	rejected     []string
	workerCounts []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[Outcome]int)}
}

func (m *recordingMetrics) RecordTaskDuration(executorName string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *recordingMetrics) RecordTaskOutcome(executorName string, outcome Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *recordingMetrics) RecordTaskPanic(executorName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = append(m.panics, panicInfo)
}

func (m *recordingMetrics) RecordQueueDepth(executorName string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, depth)
}

func (m *recordingMetrics) RecordTaskRejected(executorName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, reason)
}

func (m *recordingMetrics) RecordWorkerCount(executorName string, workers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workerCounts = append(m.workerCounts, workers)
}

func (m *recordingMetrics) outcome(o Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[o]
}

func (m *recordingMetrics) workers() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.workerCounts...)
}

type panicCall struct {
	ExecutorName string
	WorkerID     int
	PanicInfo    any
}

type recordingPanicHandler struct {
	mu    sync.Mutex
	calls []panicCall
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, executorName string, workerID int, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, panicCall{ExecutorName: executorName, WorkerID: workerID, PanicInfo: panicInfo})
}

func (h *recordingPanicHandler) Calls() []panicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]panicCall(nil), h.calls...)
}

type recordingRejectedHandler struct {
	mu      sync.Mutex
	reasons []string
}

func (h *recordingRejectedHandler) HandleRejectedTask(executorName string, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reasons = append(h.reasons, reason)
}

func (h *recordingRejectedHandler) Reasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.reasons...)
}
