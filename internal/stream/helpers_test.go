package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// fakeClock provides deterministic time for testing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder collects every event it is given.
type recorder struct {
	events []Event

	// failOn makes the nth call (1-based) return errBoom. Zero never fails.
	failOn int
}

var errBoom = errors.New("boom")

func (r *recorder) callback(_ context.Context, ev Event) error {
	if r.failOn > 0 && len(r.events)+1 == r.failOn {
		return errBoom
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) lines() []LineEvent {
	var out []LineEvent
	for _, ev := range r.events {
		if l, ok := ev.(LineEvent); ok {
			out = append(out, l)
		}
	}
	return out
}

func (r *recorder) errors() []ErrorEvent {
	var out []ErrorEvent
	for _, ev := range r.events {
		if e, ok := ev.(ErrorEvent); ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) final() (FinalEvent, bool) {
	for _, ev := range r.events {
		if f, ok := ev.(FinalEvent); ok {
			return f, true
		}
	}
	return FinalEvent{}, false
}

func lineTexts(events []LineEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Line
	}
	return out
}

// countingRecorder counts Recorder calls.
type countingRecorder struct {
	mu         sync.Mutex
	started    int
	spawnFails int
	dispatched map[parser.Stream]int
	decodeErrs int
	readErrs   int
	callbacks  int
	exited     []process.ExitStatus
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{dispatched: make(map[parser.Stream]int)}
}

func (c *countingRecorder) ProcessStarted(int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingRecorder) SpawnFailed(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawnFails++
}

func (c *countingRecorder) LineDispatched(s parser.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched[s]++
}

func (c *countingRecorder) DecodeError(parser.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decodeErrs++
}

func (c *countingRecorder) ReadError(parser.Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErrs++
}

func (c *countingRecorder) CallbackDuration(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks++
}

func (c *countingRecorder) ProcessExited(status process.ExitStatus, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exited = append(c.exited, status)
}

var _ Recorder = (*countingRecorder)(nil)
