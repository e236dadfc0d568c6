// Package stream runs a child process and delivers its output to a
// callback as a sequence of progress events.
//
// Data flow:
//
//	process.Spawn -> Multiplexer (stdout + stderr LineSources)
//	              -> Dispatcher (counters, rate, output log) -> Callback
//	              -> finalize (Wait, FinalEvent)
//
// The callback is always invoked from the goroutine that called Run, one
// event at a time. A slow callback throttles the readers; there is no queue.
package stream

import (
	"context"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
)

// Kind tags the variant of an Event.
type Kind int

const (
	// KindLine is a decoded stdout line.
	KindLine Kind = iota

	// KindError is a stderr line, a decode failure or a read failure.
	KindError

	// KindFinal is the terminal record.
	KindFinal
)

// String returns "line", "error" or "final".
func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindError:
		return "error"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Event is one callback payload: a LineEvent, ErrorEvent or FinalEvent.
type Event interface {
	Kind() Kind
	event()
}

// LineEvent is emitted for every stdout line.
type LineEvent struct {
	Line string

	// Seq is the number of stdout lines seen so far, this one included.
	Seq int64

	// Elapsed is seconds since streaming started.
	Elapsed float64

	// LinesPerSecond is Seq/Elapsed, or 0 when Elapsed is 0.
	LinesPerSecond float64
}

// ErrorCause says why an ErrorEvent was produced.
type ErrorCause int

const (
	// CauseStderr marks an ordinary stderr line.
	CauseStderr ErrorCause = iota

	// CauseDecode marks a line that was not valid UTF-8.
	CauseDecode

	// CauseRead marks a failed stream read; the stream is finished.
	CauseRead
)

// String returns "stderr", "decode" or "read".
func (c ErrorCause) String() string {
	switch c {
	case CauseStderr:
		return "stderr"
	case CauseDecode:
		return "decode"
	case CauseRead:
		return "read"
	default:
		return "unknown"
	}
}

// ErrorEvent is emitted for stderr lines and stream-local failures.
type ErrorEvent struct {
	// Message is the stderr line, or a tagged description of the failure.
	Message string

	// Seq is the stdout line count at the time; error events never advance it.
	Seq int64

	Stream parser.Stream
	Cause  ErrorCause
}

// FinalEvent is emitted once, after both streams finished and the child exited.
type FinalEvent struct {
	Success    bool
	ExitCode   int
	TotalLines int64

	// TotalTime is seconds since streaming started.
	TotalTime float64

	// FullOutput is every stdout line joined with "\n".
	FullOutput string
}

func (LineEvent) Kind() Kind  { return KindLine }
func (ErrorEvent) Kind() Kind { return KindError }
func (FinalEvent) Kind() Kind { return KindFinal }

func (LineEvent) event()  {}
func (ErrorEvent) event() {}
func (FinalEvent) event() {}

// Callback consumes events. A non-nil error aborts the run.
type Callback func(ctx context.Context, ev Event) error

// Handlers is a Callback with one function per event kind.
// Nil handlers ignore their events.
type Handlers struct {
	OnLine  func(ctx context.Context, ev LineEvent) error
	OnError func(ctx context.Context, ev ErrorEvent) error
	OnFinal func(ctx context.Context, ev FinalEvent) error
}

// Callback adapts h to a Callback.
func (h Handlers) Callback() Callback {
	return func(ctx context.Context, ev Event) error {
		switch e := ev.(type) {
		case LineEvent:
			if h.OnLine != nil {
				return h.OnLine(ctx, e)
			}
		case ErrorEvent:
			if h.OnError != nil {
				return h.OnError(ctx, e)
			}
		case FinalEvent:
			if h.OnFinal != nil {
				return h.OnFinal(ctx, e)
			}
		}
		return nil
	}
}

// Tee returns a Callback that hands each event to every non-nil cb in
// order, stopping at the first error.
func Tee(cbs ...Callback) Callback {
	active := make([]Callback, 0, len(cbs))
	for _, cb := range cbs {
		if cb != nil {
			active = append(active, cb)
		}
	}
	return func(ctx context.Context, ev Event) error {
		for _, cb := range active {
			if err := cb(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}
}
