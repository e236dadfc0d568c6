package stream

import (
	"context"
	"log/slog"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/timeseries"
)

// Options configures Run. The zero value is line-buffered with defaults.
type Options struct {
	Mode Mode

	// ChunkSize is the read size in ModeRealtime. Zero means parser.DefaultChunkSize.
	ChunkSize int

	// MaxLineSize is the longest line delivered whole; longer lines arrive as
	// segments. Zero means parser.DefaultMaxLineSize.
	MaxLineSize int

	// Clock drives elapsed times. Nil means the wall clock.
	Clock timeseries.Clock

	// Recorder observes the run. Nil records nothing.
	Recorder Recorder

	// Logger receives lifecycle logs. Nil means slog.Default().
	Logger *slog.Logger
}

// ExecWithCallback runs command through the platform shell, delivering
// whole lines as they are read.
func ExecWithCallback(ctx context.Context, command string, cb Callback) (bool, error) {
	return Run(ctx, process.NewCommandSpec(command), cb, Options{Mode: ModeLines})
}

// ExecRealtime runs command through the platform shell, reading raw chunks
// so lines are delivered as soon as their terminator arrives.
func ExecRealtime(ctx context.Context, command string, cb Callback) (bool, error) {
	return Run(ctx, process.NewCommandSpec(command), cb, Options{Mode: ModeRealtime})
}

// Run spawns r and streams its output to cb.
//
// It returns the child's success flag once the FinalEvent has been
// delivered. Errors:
//   - *process.SpawnError: the child never started; cb was not called
//   - *CallbackError: cb failed; the child has been killed and reaped
//   - *process.WaitError: the exit status could not be obtained
//   - ctx.Err(): the run was cancelled; the child has been killed and reaped
func Run(ctx context.Context, r process.Runner, cb Callback, opts Options) (bool, error) {
	if cb == nil {
		return false, ErrNoCallback
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := orNop(opts.Recorder)

	h, err := process.Spawn(ctx, r)
	if err != nil {
		rec.SpawnFailed(err)
		logger.Debug("process_spawn_failed", "runner", r.Name(), "error", err)
		return false, err
	}
	rec.ProcessStarted(h.PID())
	logger.Debug("process_started", "pid", h.PID(), "argv", h.Argv(), "mode", opts.Mode.String())

	d := NewDispatcher(cb, opts.Clock, rec)
	d.Start()

	stdout, stderr := NewSources(opts.Mode, h.Stdout(), h.Stderr(), opts.ChunkSize, opts.MaxLineSize)
	mux := NewMultiplexer(stdout, stderr)

	if err := mux.Run(ctx, logged(d.Dispatch, logger)); err != nil {
		logger.Debug("stream_aborted", "pid", h.PID(), "error", err)
		abort(h, logger)
		return false, err
	}

	return finalize(ctx, h, d, rec, logger)
}

// logged reports stream failures to logger before dispatching.
func logged(dispatch func(context.Context, parser.Line) error, logger *slog.Logger) func(context.Context, parser.Line) error {
	return func(ctx context.Context, line parser.Line) error {
		if line.IsReadError() {
			logger.Warn("stream_read_error", "stream", line.Stream.String(), "error", line.Err)
		}
		return dispatch(ctx, line)
	}
}
