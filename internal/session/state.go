package session

// State is the controller's discrete processing state. Refresh cycles move
// Idle -> Fetching -> Building -> Idle; selection profiling independently
// moves Idle -> ProfilingSelection -> Idle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateBuilding
	StateProfilingSelection
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBuilding:
		return "building"
	case StateProfilingSelection:
		return "profiling-selection"
	default:
		return "unknown"
	}
}

// StateChange is published on every controller state transition. Cycle is
// the refresh cycle token the transition belongs to (zero for transitions
// outside a refresh cycle); Err carries the failure that forced a return to
// Idle, if any.
type StateChange struct {
	State State
	Cycle uint64
	Err   error
}
