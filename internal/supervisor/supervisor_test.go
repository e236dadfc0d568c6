package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	delays []time.Duration
	err    error
}

func (f *fakeSleep) sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return f.err
}

func newTestSupervisor(maxRetries int, sleeper *fakeSleep, cb Callbacks) *Supervisor {
	return New(Config{
		MaxRetries: maxRetries,
		Backoff:    BackoffConfig{Initial: 10 * time.Millisecond, Max: time.Second, Multiplier: 2},
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Callbacks:  cb,
		Sleep:      sleeper.sleep,
	})
}

// script returns an Attempt that replays results in order.
func script(results ...result) (Attempt, *[]int) {
	var seen []int
	return func(_ context.Context, attempt int) (bool, error) {
		seen = append(seen, attempt)
		r := results[len(seen)-1]
		return r.ok, r.err
	}, &seen
}

type result struct {
	ok  bool
	err error
}

var spawnErr = &process.SpawnError{Argv: []string{"sh", "-c", "x"}, Err: errors.New("no such file")}

func TestRun_SucceedsFirstTry(t *testing.T) {
	sleeper := &fakeSleep{}
	s := newTestSupervisor(3, sleeper, Callbacks{})
	fn, seen := script(result{ok: true})

	ok, err := s.Run(context.Background(), fn)
	if !ok || err != nil {
		t.Fatalf("Run() = %v, %v", ok, err)
	}
	if len(*seen) != 1 || len(sleeper.delays) != 0 {
		t.Errorf("attempts = %v, delays = %v", *seen, sleeper.delays)
	}
	if s.State() != StateSucceeded || s.Attempts() != 1 {
		t.Errorf("state = %s, attempts = %d", s.State(), s.Attempts())
	}
}

func TestRun_RetriesUntilSuccess(t *testing.T) {
	sleeper := &fakeSleep{}
	var retries []int
	var transitions []string
	s := newTestSupervisor(3, sleeper, Callbacks{
		OnRetry: func(attempt int, _ time.Duration, _ error) { retries = append(retries, attempt) },
		OnStateChange: func(_, n State) {
			transitions = append(transitions, n.String())
		},
	})
	fn, seen := script(result{ok: false}, result{err: spawnErr}, result{ok: true})

	ok, err := s.Run(context.Background(), fn)
	if !ok || err != nil {
		t.Fatalf("Run() = %v, %v", ok, err)
	}
	if len(*seen) != 3 || (*seen)[2] != 3 {
		t.Errorf("attempts = %v", *seen)
	}
	if want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}; len(sleeper.delays) != 2 ||
		sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Errorf("delays = %v, want %v", sleeper.delays, want)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Errorf("OnRetry attempts = %v", retries)
	}
	want := []string{"running", "backoff", "running", "backoff", "running", "succeeded"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestRun_ExhaustsRetries(t *testing.T) {
	sleeper := &fakeSleep{}
	s := newTestSupervisor(2, sleeper, Callbacks{})
	fn, seen := script(result{}, result{}, result{}, result{ok: true})

	ok, err := s.Run(context.Background(), fn)
	if ok || err != nil {
		t.Fatalf("Run() = %v, %v, want false, nil", ok, err)
	}
	if len(*seen) != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", len(*seen))
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s", s.State())
	}
}

func TestRun_ZeroRetriesRunsOnce(t *testing.T) {
	s := newTestSupervisor(0, &fakeSleep{}, Callbacks{})
	fn, seen := script(result{}, result{ok: true})

	if ok, _ := s.Run(context.Background(), fn); ok {
		t.Error("Run() should report the single failure")
	}
	if len(*seen) != 1 {
		t.Errorf("attempts = %d, want 1", len(*seen))
	}
}

func TestRun_NonRetryableErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"callback error", &stream.CallbackError{Kind: stream.KindLine, Err: errors.New("boom")}},
		{"wait error", &process.WaitError{PID: 1, Err: errors.New("wait")}},
		{"cancelled", context.Canceled},
		{"empty command", &process.SpawnError{Err: process.ErrEmptyCommand}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &fakeSleep{}
			s := newTestSupervisor(5, sleeper, Callbacks{})
			fn, seen := script(result{err: tt.err}, result{ok: true})

			_, err := s.Run(context.Background(), fn)
			if !errors.Is(err, tt.err) {
				t.Errorf("Run() error = %v, want %v", err, tt.err)
			}
			if len(*seen) != 1 || len(sleeper.delays) != 0 {
				t.Errorf("should not retry: attempts = %d", len(*seen))
			}
		})
	}
}

func TestRun_SleepCancelled(t *testing.T) {
	sleeper := &fakeSleep{err: context.Canceled}
	s := newTestSupervisor(3, sleeper, Callbacks{})
	fn, seen := script(result{}, result{ok: true})

	ok, err := s.Run(context.Background(), fn)
	if ok || !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, %v", ok, err)
	}
	if len(*seen) != 1 {
		t.Errorf("attempts = %d", len(*seen))
	}
}

func TestRun_ContextDoneStopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSupervisor(3, &fakeSleep{}, Callbacks{})

	attempts := 0
	ok, err := s.Run(ctx, func(context.Context, int) (bool, error) {
		attempts++
		cancel()
		return false, nil
	})
	if ok || err != nil || attempts != 1 {
		t.Errorf("Run() = %v, %v after %d attempts", ok, err, attempts)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext(cancelled) = %v", err)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"spawn", spawnErr, true},
		{"other", errors.New("x"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
