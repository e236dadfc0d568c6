// Package timeseries tracks how fast a child process emits lines.
//
// Clock is shared with the stream dispatcher so elapsed time and rates can
// be driven deterministically in tests.
package timeseries

import "time"

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

// RealClock uses time.Now.
type RealClock struct{}

// Now returns the current wall time.
func (RealClock) Now() time.Time { return time.Now() }

// Elapsed returns the seconds between start and now, never negative.
func Elapsed(c Clock, start time.Time) float64 {
	d := c.Now().Sub(start).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// Rate returns count/seconds, or 0 when seconds is 0.
func Rate(count int64, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(count) / seconds
}
