// Package stats collects per-run statistics for a streamed child process
// and formats the exit summary.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/timeseries"
)

// digestCompression keeps ~100 centroids (~10KB) per digest.
const digestCompression = 100

// RunStats records one run. It implements stream.Recorder.
//
// Counters are atomic; the digests are guarded by their own mutexes
// because TDigest is not thread-safe.
type RunStats struct {
	clock timeseries.Clock

	pid         atomic.Int64
	startedAt   atomic.Int64 // unix nanos
	stdoutLines atomic.Int64
	stderrLines atomic.Int64
	decodeErrs  atomic.Int64
	readErrs    atomic.Int64
	callbacks   atomic.Int64

	callbackDigest   *tdigest.TDigest
	callbackDigestMu sync.Mutex

	// gapDigest holds the time between consecutive stdout lines.
	gapDigest   *tdigest.TDigest
	gapDigestMu sync.Mutex
	gaps        int
	lastLine    time.Time

	mu       sync.Mutex
	exited   bool
	status   process.ExitStatus
	runtime  time.Duration
	spawnErr error
}

// NewRunStats creates a RunStats on the wall clock.
func NewRunStats() *RunStats {
	return NewRunStatsWithClock(timeseries.RealClock{})
}

// NewRunStatsWithClock creates a RunStats with a custom clock.
func NewRunStatsWithClock(clock timeseries.Clock) *RunStats {
	return &RunStats{
		clock:          clock,
		callbackDigest: tdigest.NewWithCompression(digestCompression),
		gapDigest:      tdigest.NewWithCompression(digestCompression),
	}
}

func (s *RunStats) ProcessStarted(pid int) {
	s.pid.Store(int64(pid))
	s.startedAt.Store(s.clock.Now().UnixNano())
}

func (s *RunStats) SpawnFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawnErr = err
}

func (s *RunStats) LineDispatched(stream parser.Stream) {
	if stream == parser.Stderr {
		s.stderrLines.Add(1)
		return
	}
	s.stdoutLines.Add(1)

	now := s.clock.Now()
	s.gapDigestMu.Lock()
	if !s.lastLine.IsZero() {
		s.gapDigest.Add(float64(now.Sub(s.lastLine).Nanoseconds()), 1)
		s.gaps++
	}
	s.lastLine = now
	s.gapDigestMu.Unlock()
}

func (s *RunStats) DecodeError(parser.Stream) {
	s.decodeErrs.Add(1)
}

func (s *RunStats) ReadError(parser.Stream) {
	s.readErrs.Add(1)
}

func (s *RunStats) CallbackDuration(d time.Duration) {
	s.callbackDigestMu.Lock()
	s.callbackDigest.Add(float64(d.Nanoseconds()), 1)
	s.callbacks.Add(1)
	s.callbackDigestMu.Unlock()
}

func (s *RunStats) ProcessExited(status process.ExitStatus, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exited = true
	s.status = status
	s.runtime = elapsed
}

// Summary is a snapshot of a RunStats.
type Summary struct {
	PID         int
	Runtime     time.Duration
	Exited      bool
	ExitCode    int
	Success     bool
	SpawnFailed bool

	StdoutLines  int64
	StderrLines  int64
	DecodeErrors int64
	ReadErrors   int64
	Callbacks    int64

	// LinesPerSecond is StdoutLines over the elapsed time.
	LinesPerSecond float64

	CallbackP50 time.Duration
	CallbackP95 time.Duration
	CallbackP99 time.Duration
	CallbackMax time.Duration

	LineGapP50 time.Duration
	LineGapP95 time.Duration
	LineGapP99 time.Duration
}

// Summary returns a snapshot. Before ProcessExited, Runtime is the time
// since ProcessStarted.
func (s *RunStats) Summary() Summary {
	sum := Summary{
		PID:          int(s.pid.Load()),
		StdoutLines:  s.stdoutLines.Load(),
		StderrLines:  s.stderrLines.Load(),
		DecodeErrors: s.decodeErrs.Load(),
		ReadErrors:   s.readErrs.Load(),
		Callbacks:    s.callbacks.Load(),
	}

	s.mu.Lock()
	sum.Exited = s.exited
	sum.ExitCode = s.status.Code
	sum.Success = s.status.Success
	sum.Runtime = s.runtime
	sum.SpawnFailed = s.spawnErr != nil
	s.mu.Unlock()

	if !sum.Exited {
		if started := s.startedAt.Load(); started != 0 {
			sum.Runtime = s.clock.Now().Sub(time.Unix(0, started))
		}
	}
	sum.LinesPerSecond = timeseries.Rate(sum.StdoutLines, sum.Runtime.Seconds())

	s.callbackDigestMu.Lock()
	if s.callbacks.Load() > 0 {
		sum.CallbackP50 = time.Duration(s.callbackDigest.Quantile(0.50))
		sum.CallbackP95 = time.Duration(s.callbackDigest.Quantile(0.95))
		sum.CallbackP99 = time.Duration(s.callbackDigest.Quantile(0.99))
		sum.CallbackMax = time.Duration(s.callbackDigest.Quantile(1))
	}
	s.callbackDigestMu.Unlock()

	s.gapDigestMu.Lock()
	if s.gaps > 0 {
		sum.LineGapP50 = time.Duration(s.gapDigest.Quantile(0.50))
		sum.LineGapP95 = time.Duration(s.gapDigest.Quantile(0.95))
		sum.LineGapP99 = time.Duration(s.gapDigest.Quantile(0.99))
	}
	s.gapDigestMu.Unlock()

	return sum
}
