package process

// State represents the lifecycle state of a spawned child.
type State int32

const (
	// StateCreated is the initial state before the process has started.
	StateCreated State = iota

	// StateRunning indicates the child process is running.
	StateRunning

	// StateExited indicates the child exited on its own.
	StateExited

	// StateKilled indicates the child was killed by Kill.
	StateKilled
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the child has been reaped or killed.
func (s State) IsTerminal() bool {
	return s == StateExited || s == StateKilled
}
