package process

import (
	"fmt"
	"strings"
)

// SpawnError is returned when the operating system cannot create the child
// (missing shell, permission denied, resource exhaustion). No streaming
// happens after a SpawnError.
type SpawnError struct {
	// Argv is the command that could not be started.
	Argv []string

	// Err is the underlying OS error.
	Err error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn process %q: %v", strings.Join(e.Argv, " "), e.Err)
}

// Unwrap returns the underlying error.
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// WaitError is returned when the child's exit status could not be obtained.
type WaitError struct {
	// PID is the child's process ID.
	PID int

	// Err is the underlying error from Wait.
	Err error
}

// Error implements the error interface.
func (e *WaitError) Error() string {
	return fmt.Sprintf("process wait error (pid %d): %v", e.PID, e.Err)
}

// Unwrap returns the underlying error.
func (e *WaitError) Unwrap() error {
	return e.Err
}
