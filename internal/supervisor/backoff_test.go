package supervisor

import (
	"testing"
	"time"
)

// =============================================================================
// Table-Driven Tests: Backoff
// =============================================================================

func TestDefaultBackoffConfig(t *testing.T) {
	cfg := DefaultBackoffConfig()

	if cfg.Initial != 250*time.Millisecond {
		t.Errorf("Initial = %v, want 250ms", cfg.Initial)
	}
	if cfg.Max != 5*time.Second {
		t.Errorf("Max = %v, want 5s", cfg.Max)
	}
	if cfg.Multiplier != 1.7 || cfg.JitterPct != 0.4 {
		t.Errorf("Multiplier = %v, JitterPct = %v", cfg.Multiplier, cfg.JitterPct)
	}
}

func TestBackoff_Calculate_NoJitter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BackoffConfig
		attempts int
		want     time.Duration
	}{
		{"attempt 0", BackoffConfig{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Multiplier: 2}, 0, 100 * time.Millisecond},
		{"attempt 1", BackoffConfig{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Multiplier: 2}, 1, 200 * time.Millisecond},
		{"attempt 3", BackoffConfig{Initial: 100 * time.Millisecond, Max: 10 * time.Second, Multiplier: 2}, 3, 800 * time.Millisecond},
		{"capped at max", BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}, 10, time.Second},
		{"multiplier 1.0 (no growth)", BackoffConfig{Initial: 300 * time.Millisecond, Max: time.Second, Multiplier: 1}, 5, 300 * time.Millisecond},
		{"zero initial", BackoffConfig{Max: time.Second, Multiplier: 2}, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackoff(1, tt.cfg)
			b.attempts = tt.attempts
			if got := b.Calculate(); got != tt.want {
				t.Errorf("Calculate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoff_NextAndReset(t *testing.T) {
	b := NewBackoff(1, BackoffConfig{Initial: 10 * time.Millisecond, Max: time.Second, Multiplier: 2})

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", b.Attempts())
	}

	b.Reset()
	if b.Attempts() != 0 || b.Calculate() != 10*time.Millisecond {
		t.Errorf("after Reset: attempts = %d, delay = %v", b.Attempts(), b.Calculate())
	}
}

func TestBackoff_Jitter(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 1, JitterPct: 0.4}
	b := NewBackoff(42, cfg)

	lo, hi := 800*time.Millisecond, 1200*time.Millisecond
	for i := 0; i < 100; i++ {
		if d := b.Calculate(); d < lo || d > hi {
			t.Fatalf("Calculate() = %v, want within [%v, %v]", d, lo, hi)
		}
	}
}

func TestBackoff_DeterministicJitter(t *testing.T) {
	cfg := DefaultBackoffConfig()
	a, b := NewBackoff(7, cfg), NewBackoff(7, cfg)
	for i := 0; i < 5; i++ {
		if x, y := a.Next(), b.Next(); x != y {
			t.Fatalf("same seed diverged at %d: %v vs %v", i, x, y)
		}
	}
}

func TestBackoff_NegativeAttempts(t *testing.T) {
	b := NewBackoff(1, BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2})
	b.attempts = -5
	if got := b.Calculate(); got != 100*time.Millisecond {
		t.Errorf("Calculate() = %v, want initial delay", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateIdle, "idle", false},
		{StateRunning, "running", false},
		{StateBackoff, "backoff", false},
		{StateSucceeded, "succeeded", true},
		{StateFailed, "failed", true},
		{State(99), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v", tt.want, got)
		}
	}
}

func BenchmarkBackoff_Next(b *testing.B) {
	backoff := NewBackoff(1, DefaultBackoffConfig())
	for i := 0; i < b.N; i++ {
		backoff.Next()
		if i%10 == 0 {
			backoff.Reset()
		}
	}
}
