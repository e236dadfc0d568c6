package stream

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// Transcript is the result of ExecStreaming.
type Transcript struct {
	ExitCode int
	Success  bool

	// Output holds one "[OUT] line" or "[ERR] line" entry per line, in
	// dispatch order, joined with "\n".
	Output string
}

// ExecStreaming runs command, echoing stdout lines to stdout and stderr
// lines to stderr as they arrive, and returns a tagged transcript.
// A failed write aborts the run like any other callback failure.
func ExecStreaming(ctx context.Context, command string, stdout, stderr io.Writer) (*Transcript, error) {
	return RunStreaming(ctx, process.NewCommandSpec(command), stdout, stderr, Options{})
}

// RunStreaming is ExecStreaming for an arbitrary Runner and options.
func RunStreaming(ctx context.Context, r process.Runner, stdout, stderr io.Writer, opts Options) (*Transcript, error) {
	var (
		entries []string
		final   FinalEvent
	)

	handlers := Handlers{
		OnLine: func(_ context.Context, ev LineEvent) error {
			entries = append(entries, "[OUT] "+ev.Line)
			_, err := fmt.Fprintln(stdout, ev.Line)
			return err
		},
		OnError: func(_ context.Context, ev ErrorEvent) error {
			w, tag := stderr, "[ERR] "
			if ev.Stream == parser.Stdout {
				w, tag = stdout, "[OUT] "
			}
			entries = append(entries, tag+ev.Message)
			_, err := fmt.Fprintln(w, ev.Message)
			return err
		},
		OnFinal: func(_ context.Context, ev FinalEvent) error {
			final = ev
			return nil
		},
	}

	if _, err := Run(ctx, r, handlers.Callback(), opts); err != nil {
		return nil, err
	}
	return &Transcript{
		ExitCode: final.ExitCode,
		Success:  final.Success,
		Output:   strings.Join(entries, "\n"),
	}, nil
}
