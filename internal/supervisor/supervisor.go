package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// Attempt runs the command once. attempt starts at 1.
type Attempt func(ctx context.Context, attempt int) (bool, error)

// Callbacks contains optional callback functions for retry events.
type Callbacks struct {
	// OnStateChange is called when the loop state changes.
	OnStateChange func(oldState, newState State)

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, delay time.Duration, cause error)
}

// Config holds configuration for creating a new Supervisor.
type Config struct {
	MaxRetries int // 0 = run once
	Backoff    BackoffConfig
	Seed       int64
	Logger     *slog.Logger
	Callbacks  Callbacks

	// Sleep waits between attempts. Nil uses a timer bound to ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Supervisor re-runs an Attempt until it succeeds, a non-retryable error
// occurs, or MaxRetries is exhausted.
type Supervisor struct {
	maxRetries int
	backoff    *Backoff
	logger     *slog.Logger
	callbacks  Callbacks
	sleep      func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	state    State
	attempts int
}

// New creates a new Supervisor with the given configuration.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if cfg.Backoff == (BackoffConfig{}) {
		cfg.Backoff = DefaultBackoffConfig()
	}
	return &Supervisor{
		maxRetries: cfg.MaxRetries,
		backoff:    NewBackoff(cfg.Seed, cfg.Backoff),
		logger:     logger,
		callbacks:  cfg.Callbacks,
		sleep:      sleep,
	}
}

// Run executes fn, retrying failures. It returns the last attempt's result.
func (s *Supervisor) Run(ctx context.Context, fn Attempt) (bool, error) {
	for {
		attempt := s.nextAttempt()
		s.setState(StateRunning)

		ok, err := fn(ctx, attempt)
		if ok && err == nil {
			s.setState(StateSucceeded)
			return true, nil
		}

		if !Retryable(err) || attempt > s.maxRetries || ctx.Err() != nil {
			s.setState(StateFailed)
			return ok, err
		}

		delay := s.backoff.Next()
		s.logger.Info("retry_scheduled",
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay.String(),
			"error", err,
		)
		if s.callbacks.OnRetry != nil {
			s.callbacks.OnRetry(attempt, delay, err)
		}

		s.setState(StateBackoff)
		if err := s.sleep(ctx, delay); err != nil {
			s.setState(StateFailed)
			return false, err
		}
	}
}

// Retryable reports whether a failed attempt may be repeated. Unsuccessful
// exits (nil error) and spawn failures are retryable; every other error is not.
func Retryable(err error) bool {
	if err == nil {
		return true
	}
	var spawnErr *process.SpawnError
	return errors.As(err, &spawnErr) && !errors.Is(err, process.ErrEmptyCommand)
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Attempts returns how many attempts have started.
func (s *Supervisor) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

func (s *Supervisor) nextAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return s.attempts
}

func (s *Supervisor) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.mu.Unlock()

	if oldState != newState && s.callbacks.OnStateChange != nil {
		s.callbacks.OnStateChange(oldState, newState)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
