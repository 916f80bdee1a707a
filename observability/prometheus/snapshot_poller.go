package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-thread-executor/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// LoopSnapshotProvider provides current event loop stats snapshots.
type LoopSnapshotProvider interface {
	Stats() core.RunnerStats
}

// ExecutorSnapshotProvider provides current executor stats snapshots.
// *core.ThreadExecutor and *core.MultiThreadExecutor implement it.
type ExecutorSnapshotProvider interface {
	Stats() core.ExecutorStats
}

var executorStates = []core.ExecutorState{
	core.StateNew,
	core.StateEmpty,
	core.StateGrowing,
	core.StateSteady,
	core.StateDraining,
	core.StateDrained,
}

// SnapshotPoller periodically exports loop/executor Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	executorsMu sync.RWMutex
	executors   map[string]ExecutorSnapshotProvider

	loopPending  *prom.GaugeVec
	loopExecuted *prom.GaugeVec
	loopRejected *prom.GaugeVec
	loopClosed   *prom.GaugeVec

	executorQueued     *prom.GaugeVec
	executorActive     *prom.GaugeVec
	executorWorkers    *prom.GaugeVec
	executorMaxWorkers *prom.GaugeVec
	executorSpawned    *prom.GaugeVec
	executorFailed     *prom.GaugeVec
	executorState      *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	loopGauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "threadexecutor",
			Name:      name,
			Help:      help,
		}, []string{"loop", "type"})
	}
	executorGauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "threadexecutor",
			Name:      name,
			Help:      help,
		}, []string{"executor", "type"})
	}

	p := &SnapshotPoller{
		interval:  interval,
		loops:     make(map[string]LoopSnapshotProvider),
		executors: make(map[string]ExecutorSnapshotProvider),

		loopPending:  loopGauge("loop_pending", "Tasks waiting on the event loop."),
		loopExecuted: loopGauge("loop_executed_total", "Loop executed task count snapshot."),
		loopRejected: loopGauge("loop_rejected_total", "Loop dropped task count snapshot."),
		loopClosed:   loopGauge("loop_closed", "Loop closed state (1=closed, 0=open)."),

		executorQueued:     executorGauge("executor_queued", "Tasks waiting for a worker."),
		executorActive:     executorGauge("executor_active", "Callables running on workers."),
		executorWorkers:    executorGauge("executor_workers", "Live workers per executor."),
		executorMaxWorkers: executorGauge("executor_max_workers", "Worker cap per executor."),
		executorSpawned:    executorGauge("executor_spawned_total", "Workers started, replacements included."),
		executorFailed:     executorGauge("executor_failed_total", "Callables that failed, panicked or exited."),
		executorState: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "threadexecutor",
			Name:      "executor_state",
			Help:      "Executor lifecycle state (1 for the current state).",
		}, []string{"executor", "type", "state"}),
	}

	for _, gauge := range []**prom.GaugeVec{
		&p.loopPending, &p.loopExecuted, &p.loopRejected, &p.loopClosed,
		&p.executorQueued, &p.executorActive, &p.executorWorkers, &p.executorMaxWorkers,
		&p.executorSpawned, &p.executorFailed, &p.executorState,
	} {
		registered, err := registerCollector(reg, *gauge)
		if err != nil {
			return nil, err
		}
		*gauge = registered
	}

	return p, nil
}

// AddLoop adds or replaces a loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// AddExecutor adds or replaces an executor snapshot provider by name.
func (p *SnapshotPoller) AddExecutor(name string, provider ExecutorSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "executor")
	p.executorsMu.Lock()
	p.executors[name] = provider
	p.executorsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		typeLabel := normalizeLabel(stats.Type, "unknown")
		p.loopPending.WithLabelValues(name, typeLabel).Set(float64(stats.Pending))
		p.loopExecuted.WithLabelValues(name, typeLabel).Set(float64(stats.Executed))
		p.loopRejected.WithLabelValues(name, typeLabel).Set(float64(stats.Rejected))
		p.loopClosed.WithLabelValues(name, typeLabel).Set(boolGauge(stats.Closed))
	}
	p.loopsMu.RUnlock()

	p.executorsMu.RLock()
	for name, provider := range p.executors {
		stats := provider.Stats()
		typeLabel := normalizeLabel(stats.Type, "unknown")
		p.executorQueued.WithLabelValues(name, typeLabel).Set(float64(stats.Queued))
		p.executorActive.WithLabelValues(name, typeLabel).Set(float64(stats.Active))
		p.executorWorkers.WithLabelValues(name, typeLabel).Set(float64(stats.Workers))
		p.executorMaxWorkers.WithLabelValues(name, typeLabel).Set(float64(stats.MaxWorkers))
		p.executorSpawned.WithLabelValues(name, typeLabel).Set(float64(stats.Spawned))
		p.executorFailed.WithLabelValues(name, typeLabel).Set(float64(stats.Failed))
		for _, state := range executorStates {
			p.executorState.WithLabelValues(name, typeLabel, state.String()).Set(boolGauge(stats.State == state))
		}
	}
	p.executorsMu.RUnlock()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
