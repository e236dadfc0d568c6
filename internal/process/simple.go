package process

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
)

// ExecutionResult is the outcome of a buffered execution.
type ExecutionResult struct {
	// ExitCode is the exit code, or -1 if the child was killed by a signal.
	ExitCode int

	// Success is true when the child exited with code 0.
	Success bool

	// Stdout is the full captured standard output, leniently decoded.
	Stdout string

	// Stderr is the full captured standard error, leniently decoded.
	Stderr string
}

// Exec runs command through the platform shell to completion and captures
// both streams in memory. A non-zero exit is reported in the result, not as
// an error.
func Exec(ctx context.Context, command string) (*ExecutionResult, error) {
	return Run(ctx, NewCommandSpec(command))
}

// Run spawns r, reads both pipes to EOF concurrently, then waits.
// Errors are *SpawnError, *parser.ReadError or *WaitError; no partial
// result is returned alongside an error.
func Run(ctx context.Context, r Runner) (*ExecutionResult, error) {
	h, err := Spawn(ctx, r)
	if err != nil {
		return nil, err
	}

	var (
		wg             sync.WaitGroup
		stdout, stderr []byte
		outErr, errErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout, outErr = io.ReadAll(h.stdout)
	}()
	go func() {
		defer wg.Done()
		stderr, errErr = io.ReadAll(h.stderr)
	}()
	wg.Wait()

	status, waitErr := h.Wait()

	switch {
	case outErr != nil:
		return nil, &parser.ReadError{Stream: parser.Stdout, Err: outErr}
	case errErr != nil:
		return nil, &parser.ReadError{Stream: parser.Stderr, Err: errErr}
	case waitErr != nil:
		return nil, waitErr
	}

	outText, _ := parser.Decode(stdout)
	errText, _ := parser.Decode(stderr)
	return &ExecutionResult{
		ExitCode: status.Code,
		Success:  status.Success,
		Stdout:   outText,
		Stderr:   errText,
	}, nil
}

// ExecSilent runs command with its output discarded and reports whether it
// exited successfully.
func ExecSilent(ctx context.Context, command string) (bool, error) {
	return RunSilent(ctx, NewCommandSpec(command))
}

// RunSilent is ExecSilent for a prepared spec. Stdio is forced to StdioNull.
func RunSilent(ctx context.Context, spec CommandSpec) (bool, error) {
	spec.Stdio = StdioNull

	cmd, err := spec.BuildCommand(ctx)
	if err != nil {
		return false, &SpawnError{Argv: spec.Argv(), Err: err}
	}
	if err := cmd.Start(); err != nil {
		return false, &SpawnError{Argv: cmd.Args, Err: err}
	}

	status, err := exitStatus(cmd.Wait())
	if err != nil {
		return false, &WaitError{PID: cmd.Process.Pid, Err: err}
	}
	return status.Success, nil
}

// Which locates program using the platform's lookup command (`which` or
// `where`). It returns the first non-empty line of output, or false when
// the program is not found or the lookup itself fails.
func Which(ctx context.Context, program string) (string, bool) {
	return WhichIn(ctx, NewCommandSpec(""), program)
}

// WhichIn is Which run with base's platform, working directory and
// environment, so a PATH override in base.Env is honoured.
func WhichIn(ctx context.Context, base CommandSpec, program string) (string, bool) {
	result, err := Run(ctx, lookupSpec(base, program))
	if err != nil || !result.Success {
		return "", false
	}

	scanner := bufio.NewScanner(strings.NewReader(result.Stdout))
	scanner.Split(parser.ScanLines)
	for scanner.Scan() {
		if path := strings.TrimSpace(scanner.Text()); path != "" {
			return path, true
		}
	}
	return "", false
}

// CommandExists reports whether program can be found on PATH.
func CommandExists(ctx context.Context, program string) bool {
	return CommandExistsIn(ctx, NewCommandSpec(""), program)
}

// CommandExistsIn is CommandExists run with base's directory and environment.
func CommandExistsIn(ctx context.Context, base CommandSpec, program string) bool {
	ok, err := RunSilent(ctx, lookupSpec(base, program))
	return err == nil && ok
}

func lookupSpec(base CommandSpec, program string) CommandSpec {
	spec := base
	spec.Line = lookupCommand(program, base.Platform)
	return spec
}

func lookupCommand(program string, p Platform) string {
	if p == PlatformWindows {
		return "where " + program
	}
	return "which " + program
}
