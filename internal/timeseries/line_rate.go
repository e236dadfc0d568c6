package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringBufferSize is the number of samples to retain (2 minutes at 1 sample/sec)
	ringBufferSize = 120

	window1s  = 1 * time.Second
	window10s = 10 * time.Second
	window60s = 60 * time.Second
)

type sample struct {
	timestamp time.Time
	lines     int64
}

// LineRateTracker counts lines and computes rolling lines/second.
//
// Usage:
//
//	tracker := NewLineRateTracker()
//	tracker.AddLines(1)      // per dispatched line (lock-free)
//	tracker.RecordSample()   // periodically, e.g. on a 1s tick
//	stats := tracker.GetStats()
type LineRateTracker struct {
	totalLines atomic.Int64

	samples  []sample
	writeIdx int
	mu       sync.RWMutex

	startTime time.Time
	clock     Clock
}

// LineRateStats is a point-in-time view of a LineRateTracker.
type LineRateStats struct {
	TotalLines int64

	// Rolling averages (lines per second)
	Rate1s  float64
	Rate10s float64
	Rate60s float64

	// RateOverall is TotalLines divided by time since start.
	RateOverall float64
}

// NewLineRateTracker creates a tracker on the real clock.
func NewLineRateTracker() *LineRateTracker {
	return NewLineRateTrackerWithClock(RealClock{})
}

// NewLineRateTrackerWithClock creates a tracker with a custom clock.
func NewLineRateTrackerWithClock(clock Clock) *LineRateTracker {
	now := clock.Now()
	t := &LineRateTracker{
		samples:   make([]sample, 0, ringBufferSize),
		startTime: now,
		clock:     clock,
	}
	t.samples = append(t.samples, sample{timestamp: now})
	return t
}

// AddLines adds n lines to the total. Non-positive n is ignored.
func (t *LineRateTracker) AddLines(n int64) {
	if n > 0 {
		t.totalLines.Add(n)
	}
}

// RecordSample snapshots the current total.
func (t *LineRateTracker) RecordSample() {
	now := t.clock.Now()
	current := t.totalLines.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	s := sample{timestamp: now, lines: current}
	if len(t.samples) < ringBufferSize {
		t.samples = append(t.samples, s)
		return
	}
	t.samples[t.writeIdx] = s
	t.writeIdx = (t.writeIdx + 1) % ringBufferSize
}

// GetStats computes current rates from the sample history.
func (t *LineRateTracker) GetStats() LineRateStats {
	now := t.clock.Now()
	current := t.totalLines.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	return LineRateStats{
		TotalLines:  current,
		RateOverall: Rate(current, now.Sub(t.startTime).Seconds()),
		Rate1s:      t.rateOverWindow(now, current, window1s),
		Rate10s:     t.rateOverWindow(now, current, window10s),
		Rate60s:     t.rateOverWindow(now, current, window60s),
	}
}

// rateOverWindow must be called with mu held.
func (t *LineRateTracker) rateOverWindow(now time.Time, current int64, window time.Duration) float64 {
	target := now.Add(-window)

	// Newest sample at or before target; falls back to the oldest sample.
	var best *sample
	for i := range t.samples {
		s := &t.samples[i]
		if s.timestamp.After(target) {
			continue
		}
		if best == nil || s.timestamp.After(best.timestamp) {
			best = s
		}
	}
	if best == nil {
		best = t.oldestSample()
	}
	if best == nil {
		return 0
	}

	return Rate(current-best.lines, now.Sub(best.timestamp).Seconds())
}

func (t *LineRateTracker) oldestSample() *sample {
	if len(t.samples) == 0 {
		return nil
	}
	if len(t.samples) < ringBufferSize {
		return &t.samples[0]
	}
	return &t.samples[t.writeIdx]
}

// Reset clears all data and restarts tracking.
func (t *LineRateTracker) Reset() {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalLines.Store(0)
	t.samples = append(t.samples[:0], sample{timestamp: now})
	t.writeIdx = 0
	t.startTime = now
}

// SampleCount returns the number of retained samples.
func (t *LineRateTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
