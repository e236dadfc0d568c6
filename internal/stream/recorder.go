package stream

import (
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// Recorder observes a run. Implementations must be cheap: every method is
// called inline on the dispatch path.
type Recorder interface {
	ProcessStarted(pid int)
	SpawnFailed(err error)
	LineDispatched(stream parser.Stream)
	DecodeError(stream parser.Stream)
	ReadError(stream parser.Stream)
	CallbackDuration(d time.Duration)
	ProcessExited(status process.ExitStatus, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ProcessStarted(int)                              {}
func (nopRecorder) SpawnFailed(error)                               {}
func (nopRecorder) LineDispatched(parser.Stream)                    {}
func (nopRecorder) DecodeError(parser.Stream)                       {}
func (nopRecorder) ReadError(parser.Stream)                         {}
func (nopRecorder) CallbackDuration(time.Duration)                  {}
func (nopRecorder) ProcessExited(process.ExitStatus, time.Duration) {}

// MultiRecorder fans every call out to each non-nil recorder in order.
type MultiRecorder []Recorder

// NewMultiRecorder drops nil entries.
func NewMultiRecorder(recorders ...Recorder) MultiRecorder {
	out := make(MultiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m MultiRecorder) ProcessStarted(pid int) {
	for _, r := range m {
		r.ProcessStarted(pid)
	}
}

func (m MultiRecorder) SpawnFailed(err error) {
	for _, r := range m {
		r.SpawnFailed(err)
	}
}

func (m MultiRecorder) LineDispatched(stream parser.Stream) {
	for _, r := range m {
		r.LineDispatched(stream)
	}
}

func (m MultiRecorder) DecodeError(stream parser.Stream) {
	for _, r := range m {
		r.DecodeError(stream)
	}
}

func (m MultiRecorder) ReadError(stream parser.Stream) {
	for _, r := range m {
		r.ReadError(stream)
	}
}

func (m MultiRecorder) CallbackDuration(d time.Duration) {
	for _, r := range m {
		r.CallbackDuration(d)
	}
}

func (m MultiRecorder) ProcessExited(status process.ExitStatus, elapsed time.Duration) {
	for _, r := range m {
		r.ProcessExited(status, elapsed)
	}
}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
