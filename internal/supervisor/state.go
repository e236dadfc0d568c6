// Package supervisor re-runs a failed command with exponential backoff.
package supervisor

// State is the retry loop's position.
type State int

const (
	// StateIdle is the initial state before the first attempt.
	StateIdle State = iota

	// StateRunning indicates an attempt is in progress.
	StateRunning

	// StateBackoff indicates the loop is waiting before the next attempt.
	StateBackoff

	// StateSucceeded means an attempt exited successfully.
	StateSucceeded

	// StateFailed means the last attempt failed and no retry remains.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the loop has finished.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}
