// Package process builds, spawns and waits on shell child processes.
package process

import (
	"context"
	"os/exec"
)

// Runner creates executable commands.
// This interface allows spawning to be decoupled from how argv is chosen.
type Runner interface {
	// BuildCommand returns a ready-to-start command.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// ExitStatus is the terminal disposition of a child process.
type ExitStatus struct {
	// Code is the exit code, or -1 if the child was terminated by a signal.
	Code int

	// Success is true when the child exited with code 0.
	Success bool
}
