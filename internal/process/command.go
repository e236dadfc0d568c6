package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Stdio selects what happens to the child's standard output streams.
type Stdio int

const (
	// StdioPiped leaves stdout/stderr unset so the caller can attach pipes
	// or buffers. Spawn attaches pipes.
	StdioPiped Stdio = iota

	// StdioInherit connects the child to this process's stdout/stderr.
	StdioInherit

	// StdioNull discards the child's output.
	StdioNull
)

// ErrEmptyCommand is returned when a CommandSpec has no command line.
var ErrEmptyCommand = errors.New("process: command line is empty")

// CommandSpec describes one shell invocation. It is a value type and is
// never mutated after construction.
type CommandSpec struct {
	// Line is the raw command line, handed to the shell verbatim.
	Line string

	// Platform picks the shell wrapper.
	Platform Platform

	// Stdio configures the child's stdout/stderr.
	Stdio Stdio

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is additional KEY=VALUE pairs appended to os.Environ.
	Env []string
}

// NewCommandSpec returns a piped spec for the current platform.
func NewCommandSpec(line string) CommandSpec {
	return CommandSpec{
		Line:     line,
		Platform: CurrentPlatform(),
		Stdio:    StdioPiped,
	}
}

// Argv returns the full argv, shell wrapper included.
func (s CommandSpec) Argv() []string {
	return ShellArgv(s.Line, s.Platform)
}

// Name returns the shell binary. Implements Runner.
func (s CommandSpec) Name() string {
	return s.Argv()[0]
}

// BuildCommand creates an unstarted exec.Cmd. Implements Runner.
func (s CommandSpec) BuildCommand(ctx context.Context) (*exec.Cmd, error) {
	if strings.TrimSpace(s.Line) == "" {
		return nil, ErrEmptyCommand
	}

	argv := s.Argv()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // running a caller-supplied command line is the purpose of this package
	cmd.Dir = s.Dir
	setProcessGroup(cmd)
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	// StdioNull and StdioPiped both leave the writers nil: exec.Cmd sends
	// nil writers to the null device unless pipes are attached before Start.
	if s.Stdio == StdioInherit {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	return cmd, nil
}

// String returns the command as it would be typed.
func (s CommandSpec) String() string {
	argv := s.Argv()
	return argv[0] + " " + argv[1] + " " + argv[2]
}

var _ Runner = CommandSpec{}
