package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Handle owns a live child process started by Spawn.
//
// Stdout and Stderr are independently readable pipes. Wait may be called
// any number of times but reaps the child exactly once; it must not be
// called until both pipes have been read to EOF, except when aborting.
type Handle struct {
	cmd    *exec.Cmd
	argv   []string
	stdout io.ReadCloser
	stderr io.ReadCloser

	started time.Time
	state   atomic.Int32

	waitOnce sync.Once
	status   ExitStatus
	waitErr  error
}

// Spawn builds the command, attaches stdout/stderr pipes and starts it.
// Any failure before the child is running is reported as a *SpawnError.
func Spawn(ctx context.Context, r Runner) (*Handle, error) {
	cmd, err := r.BuildCommand(ctx)
	if err != nil {
		return nil, &SpawnError{Argv: []string{r.Name()}, Err: err}
	}

	h := &Handle{cmd: cmd, argv: cmd.Args}

	h.stdout, err = cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Argv: h.argv, Err: err}
	}
	h.stderr, err = cmd.StderrPipe()
	if err != nil {
		h.stdout.Close()
		return nil, &SpawnError{Argv: h.argv, Err: err}
	}

	if err := cmd.Start(); err != nil {
		// Start closes the pipes it created on failure.
		return nil, &SpawnError{Argv: h.argv, Err: err}
	}

	h.started = time.Now()
	h.state.Store(int32(StateRunning))
	return h, nil
}

// Stdout returns the child's standard output pipe.
func (h *Handle) Stdout() io.Reader {
	return h.stdout
}

// Stderr returns the child's standard error pipe.
func (h *Handle) Stderr() io.Reader {
	return h.stderr
}

// PID returns the child's process ID.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return -1
	}
	return h.cmd.Process.Pid
}

// Argv returns the argv the child was started with.
func (h *Handle) Argv() []string {
	return h.argv
}

// Started returns when the child was started.
func (h *Handle) Started() time.Time {
	return h.started
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Wait reaps the child and returns its exit status.
//
// A non-zero exit is not an error: it is reported through ExitStatus.
// Only a failure to obtain the status at all is returned as *WaitError.
func (h *Handle) Wait() (ExitStatus, error) {
	h.waitOnce.Do(func() {
		err := h.cmd.Wait()
		h.status, h.waitErr = exitStatus(err)
		if h.waitErr != nil {
			h.waitErr = &WaitError{PID: h.PID(), Err: h.waitErr}
		}
		h.state.CompareAndSwap(int32(StateRunning), int32(StateExited))
	})
	return h.status, h.waitErr
}

// Kill terminates the child. When the child leads its own process group the
// whole group is killed. Killing a child that already exited is not an error.
func (h *Handle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	var err error
	if ownsGroup(h.cmd) {
		err = killGroup(h.cmd.Process)
	} else {
		err = h.cmd.Process.Kill()
	}
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	h.state.CompareAndSwap(int32(StateRunning), int32(StateKilled))
	return nil
}

// exitStatus converts the result of exec.Cmd.Wait into an ExitStatus.
func exitStatus(err error) (ExitStatus, error) {
	if err == nil {
		return ExitStatus{Code: 0, Success: true}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 when the child was terminated by a signal.
		return ExitStatus{Code: exitErr.ExitCode(), Success: false}, nil
	}

	return ExitStatus{Code: -1, Success: false}, err
}
