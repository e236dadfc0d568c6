package stream

import (
	"context"
	"io"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
)

// Mode selects the read granularity of the line sources.
type Mode int

const (
	// ModeLines reads whole lines through a bufio.Scanner.
	ModeLines Mode = iota

	// ModeRealtime reads fixed-size chunks and splits lines itself.
	ModeRealtime
)

// String returns "lines" or "realtime".
func (m Mode) String() string {
	switch m {
	case ModeLines:
		return "lines"
	case ModeRealtime:
		return "realtime"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "lines":
		return ModeLines, true
	case "realtime":
		return ModeRealtime, true
	default:
		return 0, false
	}
}

// Multiplexer drains two line sources concurrently and hands every line to
// a dispatch function on the caller's goroutine.
type Multiplexer struct {
	stdout parser.LineSource
	stderr parser.LineSource
}

// NewMultiplexer wraps the given sources.
func NewMultiplexer(stdout, stderr parser.LineSource) *Multiplexer {
	return &Multiplexer{stdout: stdout, stderr: stderr}
}

// NewSources builds the stdout/stderr sources for mode.
// chunkSize applies to ModeRealtime; maxLineSize caps lines in both modes.
// Zero selects the defaults.
func NewSources(mode Mode, stdout, stderr io.Reader, chunkSize, maxLineSize int) (parser.LineSource, parser.LineSource) {
	if mode == ModeRealtime {
		return parser.NewChunkReader(parser.Stdout, stdout, chunkSize, maxLineSize),
			parser.NewChunkReader(parser.Stderr, stderr, chunkSize, maxLineSize)
	}
	return parser.NewPipeReader(parser.Stdout, stdout, maxLineSize),
		parser.NewPipeReader(parser.Stderr, stderr, maxLineSize)
}

// Sources returns the stdout and stderr sources.
func (m *Multiplexer) Sources() (stdout, stderr parser.LineSource) {
	return m.stdout, m.stderr
}

// Run starts both sources and dispatches lines until both are finished.
//
// Lines from one stream reach dispatch in stream order; lines from
// different streams are dispatched in whichever order they become ready.
// Run returns the first dispatch error, or ctx.Err() if ctx is cancelled.
// On early return the sources are told to stop but may still be blocked in
// a read until the pipes are closed.
func (m *Multiplexer) Run(ctx context.Context, dispatch func(context.Context, parser.Line) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outCh := make(chan parser.Line)
	errCh := make(chan parser.Line)
	go m.stdout.Run(ctx, outCh)
	go m.stderr.Run(ctx, errCh)

	for outCh != nil || errCh != nil {
		var (
			line parser.Line
			ok   bool
		)

		select {
		case line, ok = <-outCh:
			if !ok {
				outCh = nil
				continue
			}
		case line, ok = <-errCh:
			if !ok {
				errCh = nil
				continue
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := dispatch(ctx, line); err != nil {
			return err
		}
	}
	return nil
}
