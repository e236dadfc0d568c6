package stream

import (
	"context"
	"strings"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/timeseries"
)

// Dispatcher turns surfaced lines into events and invokes the callback.
//
// A Dispatcher is owned by a single goroutine. The stdout line counter and
// the output log are only touched from Dispatch and Final.
type Dispatcher struct {
	callback Callback
	clock    timeseries.Clock
	recorder Recorder

	start     time.Time
	processed int64
	output    strings.Builder
}

// NewDispatcher creates a dispatcher. A nil clock uses the wall clock and
// a nil recorder records nothing.
func NewDispatcher(cb Callback, clock timeseries.Clock, rec Recorder) *Dispatcher {
	if clock == nil {
		clock = timeseries.RealClock{}
	}
	return &Dispatcher{
		callback: cb,
		clock:    clock,
		recorder: orNop(rec),
	}
}

// Start marks the moment streaming began. Elapsed times are measured from here.
func (d *Dispatcher) Start() {
	d.start = d.clock.Now()
}

// ProcessedLines returns the number of stdout lines dispatched so far.
func (d *Dispatcher) ProcessedLines() int64 {
	return d.processed
}

// Output returns the stdout lines dispatched so far, joined with "\n".
func (d *Dispatcher) Output() string {
	return d.output.String()
}

// Elapsed returns seconds since Start.
func (d *Dispatcher) Elapsed() float64 {
	return timeseries.Elapsed(d.clock, d.start)
}

// Dispatch builds the event for line and invokes the callback.
// Only a callback failure is returned, as a *CallbackError.
func (d *Dispatcher) Dispatch(ctx context.Context, line parser.Line) error {
	return d.invoke(ctx, d.eventFor(line))
}

func (d *Dispatcher) eventFor(line parser.Line) Event {
	switch {
	case line.IsReadError():
		d.recorder.ReadError(line.Stream)
		return ErrorEvent{
			Message: "[" + line.Stream.String() + ":read-error] " + line.Err.Error(),
			Seq:     d.processed,
			Stream:  line.Stream,
			Cause:   CauseRead,
		}

	case line.IsDecodeError():
		d.recorder.DecodeError(line.Stream)
		marker := line.Err.(*parser.DecodeError).Marker()
		return ErrorEvent{
			Message: marker + " " + line.Text,
			Seq:     d.processed,
			Stream:  line.Stream,
			Cause:   CauseDecode,
		}

	case line.Stream == parser.Stderr:
		d.recorder.LineDispatched(parser.Stderr)
		return ErrorEvent{
			Message: line.Text,
			Seq:     d.processed,
			Stream:  parser.Stderr,
			Cause:   CauseStderr,
		}
	}

	d.recorder.LineDispatched(parser.Stdout)
	if d.processed > 0 {
		d.output.WriteByte('\n')
	}
	d.output.WriteString(line.Text)
	d.processed++

	elapsed := d.Elapsed()
	return LineEvent{
		Line:           line.Text,
		Seq:            d.processed,
		Elapsed:        elapsed,
		LinesPerSecond: timeseries.Rate(d.processed, elapsed),
	}
}

// Final builds the terminal event from status and invokes the callback.
func (d *Dispatcher) Final(ctx context.Context, status process.ExitStatus) (FinalEvent, error) {
	ev := FinalEvent{
		Success:    status.Success,
		ExitCode:   status.Code,
		TotalLines: d.processed,
		TotalTime:  d.Elapsed(),
		FullOutput: d.output.String(),
	}
	return ev, d.invoke(ctx, ev)
}

func (d *Dispatcher) invoke(ctx context.Context, ev Event) error {
	begin := time.Now()
	err := d.callback(ctx, ev)
	d.recorder.CallbackDuration(time.Since(begin))
	if err != nil {
		return &CallbackError{Kind: ev.Kind(), Err: err}
	}
	return nil
}
