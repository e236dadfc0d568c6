// Package metrics provides Prometheus metrics for exec-stream.
//
// The Collector implements stream.Recorder, so every run driven through
// the stream package updates it inline. Metrics are registered on the
// registry passed to NewCollectorWithRegistry; tests use a private one.
package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/timeseries"
)

const namespace = "exec_stream"

// CollectorConfig describes the run being measured.
type CollectorConfig struct {
	// Command is the command line, exported as an info label.
	Command string

	// Mode is the read mode, exported as an info label.
	Mode string

	// Clock drives the line-rate tracker. Nil means the wall clock.
	Clock timeseries.Clock
}

// Collector holds the exec-stream metrics.
type Collector struct {
	info             *prometheus.GaugeVec
	processesStarted prometheus.Counter
	spawnFailures    prometheus.Counter
	processRunning   prometheus.Gauge
	lines            *prometheus.CounterVec
	decodeErrors     *prometheus.CounterVec
	readErrors       *prometheus.CounterVec
	callbackSeconds  prometheus.Histogram
	exits            *prometheus.CounterVec
	lastExitCode     prometheus.Gauge
	runtimeSeconds   prometheus.Histogram
	linesPerSecond   *prometheus.GaugeVec

	tracker *timeseries.LineRateTracker

	mu        sync.Mutex
	exitCodes map[int]int64
}

// NewCollector creates a collector registered on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	clock := cfg.Clock
	if clock == nil {
		clock = timeseries.RealClock{}
	}

	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "info",
				Help:      "Information about the run (value always 1)",
			},
			[]string{"command", "mode", "os"},
		),
		processesStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "processes_started_total",
				Help:      "Child processes successfully spawned",
			},
		),
		spawnFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spawn_failures_total",
				Help:      "Child processes that could not be spawned",
			},
		),
		processRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "process_running",
				Help:      "Child processes currently running",
			},
		),
		lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lines_total",
				Help:      "Lines dispatched to the callback, by stream",
			},
			[]string{"stream"},
		),
		decodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Lines that were not valid UTF-8, by stream",
			},
			[]string{"stream"},
		),
		readErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "read_errors_total",
				Help:      "Stream read failures, by stream",
			},
			[]string{"stream"},
		),
		callbackSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "callback_duration_seconds",
				Help:      "Time spent in the consumer callback per event",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs .. ~2.6s
			},
		),
		exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "process_exits_total",
				Help:      "Child exits by category (success, error, signal)",
			},
			[]string{"category"},
		),
		lastExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_exit_code",
				Help:      "Exit code of the most recent child (-1 = signaled)",
			},
		),
		runtimeSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "process_runtime_seconds",
				Help:      "Child runtime from spawn to exit",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms .. ~43min
			},
		),
		linesPerSecond: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stdout_lines_per_second",
				Help:      "Rolling stdout line rate",
			},
			[]string{"window"},
		),
		tracker:   timeseries.NewLineRateTrackerWithClock(clock),
		exitCodes: make(map[int]int64),
	}

	registry.MustRegister(
		c.info,
		c.processesStarted,
		c.spawnFailures,
		c.processRunning,
		c.lines,
		c.decodeErrors,
		c.readErrors,
		c.callbackSeconds,
		c.exits,
		c.lastExitCode,
		c.runtimeSeconds,
		c.linesPerSecond,
	)

	c.info.WithLabelValues(cfg.Command, cfg.Mode, process.OSName()).Set(1)
	return c
}

// ProcessStarted implements stream.Recorder.
func (c *Collector) ProcessStarted(int) {
	c.processesStarted.Inc()
	c.processRunning.Inc()
}

// SpawnFailed implements stream.Recorder.
func (c *Collector) SpawnFailed(error) {
	c.spawnFailures.Inc()
}

// LineDispatched implements stream.Recorder.
func (c *Collector) LineDispatched(s parser.Stream) {
	c.lines.WithLabelValues(s.String()).Inc()
	if s == parser.Stdout {
		c.tracker.AddLines(1)
	}
}

// DecodeError implements stream.Recorder.
func (c *Collector) DecodeError(s parser.Stream) {
	c.decodeErrors.WithLabelValues(s.String()).Inc()
}

// ReadError implements stream.Recorder.
func (c *Collector) ReadError(s parser.Stream) {
	c.readErrors.WithLabelValues(s.String()).Inc()
}

// CallbackDuration implements stream.Recorder.
func (c *Collector) CallbackDuration(d time.Duration) {
	c.callbackSeconds.Observe(d.Seconds())
}

// ProcessExited implements stream.Recorder.
func (c *Collector) ProcessExited(status process.ExitStatus, elapsed time.Duration) {
	c.processRunning.Dec()
	c.exits.WithLabelValues(exitCategory(status.Code)).Inc()
	c.lastExitCode.Set(float64(status.Code))
	c.runtimeSeconds.Observe(elapsed.Seconds())

	c.mu.Lock()
	c.exitCodes[status.Code]++
	c.mu.Unlock()
}

// exitCategory buckets an exit code. Shells report a signaled grandchild
// as 128+N.
func exitCategory(code int) string {
	switch {
	case code == 0:
		return "success"
	case code < 0 || code > 128:
		return "signal"
	default:
		return "error"
	}
}

// Sample snapshots the line-rate tracker and publishes the rolling rates.
func (c *Collector) Sample() timeseries.LineRateStats {
	c.tracker.RecordSample()
	st := c.tracker.GetStats()
	c.linesPerSecond.WithLabelValues("1s").Set(st.Rate1s)
	c.linesPerSecond.WithLabelValues("10s").Set(st.Rate10s)
	c.linesPerSecond.WithLabelValues("60s").Set(st.Rate60s)
	c.linesPerSecond.WithLabelValues("overall").Set(st.RateOverall)
	return st
}

// RunSampler calls Sample every interval until ctx is done.
func (c *Collector) RunSampler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sample()
		}
	}
}

// ExitCodes returns a copy of the exit-code histogram as "code" -> count.
func (c *Collector) ExitCodes() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.exitCodes))
	for code, n := range c.exitCodes {
		out[strconv.Itoa(code)] = n
	}
	return out
}
