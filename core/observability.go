package core

// ExecutorState is the observable lifecycle state of an executor.
//
// A pool moves New → Empty → Growing → Steady → Draining → Drained; it only
// grows while running and only shrinks through shutdown. A single-worker
// executor goes from New straight to Steady on Start.
type ExecutorState int32

const (
	StateNew ExecutorState = iota
	StateEmpty
	StateGrowing
	StateSteady
	StateDraining
	StateDrained
)

func (s ExecutorState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateEmpty:
		return "empty"
	case StateGrowing:
		return "growing"
	case StateSteady:
		return "steady"
	case StateDraining:
		return "draining"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// RunnerStats represents runtime observability state for a loop.
type RunnerStats struct {
	Name     string
	Type     string
	Pending  int
	Executed int64
	Rejected int64
	Closed   bool
}

// ExecutorStats represents runtime observability state for an executor.
type ExecutorStats struct {
	Name       string
	Type       string
	State      ExecutorState
	Workers    int
	MaxWorkers int
	// Spawned counts every worker started, replacements included.
	Spawned   int64
	Queued    int
	Active    int
	Submitted int64
	Completed int64
	Failed    int64
	Rejected  int64
}
