package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/config"
	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/script"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
	"github.com/randomizedcoder/go-exec-stream/internal/supervisor"
	"github.com/randomizedcoder/go-exec-stream/internal/tui"
)

// ExitCancelled is reported when a signal or the dashboard stops the run.
const ExitCancelled = 130

// execute runs the selected mode and maps its outcome to an exit code.
func (o *Orchestrator) execute(ctx context.Context) (int, error) {
	if o.config.Script != "" {
		return o.runScript(ctx)
	}

	var code int
	attempt := o.attempt(o.spec(), &code)

	sup := supervisor.New(supervisor.Config{
		MaxRetries: o.config.Retries,
		Backoff: supervisor.BackoffConfig{
			Initial:    o.config.RetryBackoff,
			Max:        o.config.RetryMax,
			Multiplier: supervisor.DefaultBackoffConfig().Multiplier,
			JitterPct:  supervisor.DefaultBackoffConfig().JitterPct,
		},
		Seed:   time.Now().UnixNano(),
		Logger: o.logger,
		Callbacks: supervisor.Callbacks{
			OnRetry: func(attempt int, delay time.Duration, _ error) {
				fmt.Fprintf(o.stderr, "exec-stream: attempt %d failed, retrying in %s\n", attempt, delay.Round(time.Millisecond))
			},
		},
	})

	ok, err := sup.Run(ctx, attempt)
	switch {
	case err != nil && ctx.Err() != nil:
		o.logger.Info("run_cancelled", "cause", ctx.Err())
		return ExitCancelled, nil
	case err != nil:
		return 1, err
	case ok:
		return 0, nil
	default:
		return exitCode(code), nil
	}
}

// exitCode maps a child's exit code to ours. Signal deaths report 1.
func exitCode(code int) int {
	if code <= 0 {
		return 1
	}
	return code
}

func (o *Orchestrator) spec() process.CommandSpec {
	spec := process.NewCommandSpec(o.config.Command)
	spec.Dir = o.config.Dir
	spec.Env = o.config.Env
	return spec
}

func (o *Orchestrator) streamOptions(mode stream.Mode) stream.Options {
	return stream.Options{
		Mode:        mode,
		ChunkSize:   o.config.ChunkSize,
		MaxLineSize: o.config.MaxLineSize,
		Recorder:    o.Recorder(),
		Logger:      o.logger,
	}
}

// attempt returns the per-mode Attempt; code receives the child's exit code.
func (o *Orchestrator) attempt(spec process.CommandSpec, code *int) supervisor.Attempt {
	switch o.config.Mode {
	case config.ModeBuffered:
		return func(ctx context.Context, _ int) (bool, error) {
			return o.runBuffered(ctx, spec, code)
		}
	case config.ModeSilent:
		return func(ctx context.Context, _ int) (bool, error) {
			return o.runSilent(ctx, spec, code)
		}
	case config.ModeStreaming:
		return func(ctx context.Context, _ int) (bool, error) {
			tr, err := stream.RunStreaming(ctx, spec, o.stdout, o.stderr, o.streamOptions(stream.ModeLines))
			if err != nil {
				return false, err
			}
			*code = tr.ExitCode
			return tr.Success, nil
		}
	default:
		mode, _ := stream.ParseMode(o.config.Mode)
		return func(ctx context.Context, _ int) (bool, error) {
			final := stream.Handlers{
				OnFinal: func(_ context.Context, ev stream.FinalEvent) error {
					*code = ev.ExitCode
					return nil
				},
			}
			return stream.Run(ctx, spec, stream.Tee(o.lines.Callback(), o.display(), final.Callback()), o.streamOptions(mode))
		}
	}
}

// display is the dashboard when it runs, otherwise a plain echo.
func (o *Orchestrator) display() stream.Callback {
	if o.program != nil {
		return tui.Callback(o.program)
	}
	return stream.Handlers{
		OnLine: func(_ context.Context, ev stream.LineEvent) error {
			_, err := fmt.Fprintln(o.stdout, ev.Line)
			return err
		},
		OnError: func(_ context.Context, ev stream.ErrorEvent) error {
			w := o.stderr
			if ev.Stream == parser.Stdout {
				w = o.stdout
			}
			_, err := fmt.Fprintln(w, ev.Message)
			return err
		},
	}.Callback()
}

func (o *Orchestrator) runBuffered(ctx context.Context, spec process.CommandSpec, code *int) (bool, error) {
	rec := o.Recorder()
	start := time.Now()

	result, err := process.Run(ctx, spec)
	if err != nil {
		recordFailure(rec, err)
		return false, err
	}
	// Buffered runs never expose the PID.
	rec.ProcessStarted(0)
	rec.ProcessExited(process.ExitStatus{Code: result.ExitCode, Success: result.Success}, time.Since(start))

	fmt.Fprint(o.stdout, result.Stdout)
	fmt.Fprint(o.stderr, result.Stderr)
	*code = result.ExitCode
	return result.Success, nil
}

func (o *Orchestrator) runSilent(ctx context.Context, spec process.CommandSpec, code *int) (bool, error) {
	rec := o.Recorder()
	start := time.Now()

	ok, err := process.RunSilent(ctx, spec)
	if err != nil {
		recordFailure(rec, err)
		return false, err
	}
	status := process.ExitStatus{Code: 1, Success: ok}
	if ok {
		status.Code = 0
	}
	rec.ProcessStarted(0)
	rec.ProcessExited(status, time.Since(start))
	*code = status.Code
	return ok, nil
}

func recordFailure(rec stream.Recorder, err error) {
	var spawnErr *process.SpawnError
	if errors.As(err, &spawnErr) {
		rec.SpawnFailed(err)
	}
}

// runScript executes the Lua script. Script errors exit 1.
func (o *Orchestrator) runScript(ctx context.Context) (int, error) {
	host := script.NewHost(script.Options{
		Verbose:    o.config.Verbose,
		Target:     o.config.Target,
		ScriptPath: o.config.Script,
		Dir:        o.config.Dir,
		Env:        o.config.Env,
		Stdout:     o.stdout,
		Stderr:     o.stderr,
		Stream:     o.streamOptions(stream.ModeLines),
		Logger:     o.logger,
	})
	defer host.Close()

	o.logger.Info("script_starting", "path", o.config.Script, "target", o.config.Target)
	if err := host.DoFile(ctx, o.config.Script); err != nil {
		if ctx.Err() != nil {
			return ExitCancelled, nil
		}
		return 1, fmt.Errorf("script %s: %w", o.config.Script, err)
	}
	return 0, nil
}
