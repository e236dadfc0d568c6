// Package orchestrator wires one exec-stream invocation together: preflight,
// metrics, the dashboard, the selected run mode, retries and the exit summary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-exec-stream/internal/config"
	"github.com/randomizedcoder/go-exec-stream/internal/logging"
	"github.com/randomizedcoder/go-exec-stream/internal/metrics"
	"github.com/randomizedcoder/go-exec-stream/internal/preflight"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
	"github.com/randomizedcoder/go-exec-stream/internal/stats"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
	"github.com/randomizedcoder/go-exec-stream/internal/tui"
)

// ErrPreflightFailed is returned when a required preflight check fails.
var ErrPreflightFailed = errors.New("preflight checks failed (use -skip-preflight to override)")

// Orchestrator coordinates all components for one run.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	stats         *stats.RunStats
	lines         *logging.LineLogger

	program *tea.Program
}

// Options overrides the orchestrator's outputs. Zero values use the
// process's stdout and stderr.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	registry := prometheus.NewRegistry()
	o := &Orchestrator{
		config:   cfg,
		logger:   logger,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		registry: registry,
		metrics: metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
			Command: cfg.Command,
			Mode:    cfg.Mode,
		}, registry),
		stats: stats.NewRunStats(),
		lines: logging.NewLineLogger(logger, cfg.Verbose),
	}
	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, registry, logger)
	}
	return o
}

// Run executes the configured command or script. It blocks until the child
// finishes or a signal arrives, and returns the exit code the CLI should
// report. A non-nil error means the engine itself failed.
func (o *Orchestrator) Run(ctx context.Context) (int, error) {
	if !o.config.SkipPreflight {
		result := preflight.RunAll(ctx, preflight.Options{
			Platform:    process.CurrentPlatform(),
			Runs:        o.config.Retries + 1,
			Script:      o.config.Script,
			Dir:         o.config.Dir,
			MetricsAddr: o.config.MetricsAddr,
		})
		if o.config.Verbose || !result.Passed {
			preflight.PrintResults(o.stderr, result)
		}
		if !result.Passed {
			return 1, ErrPreflightFailed
		}
	}
	if o.config.Check {
		o.logger.Info("check_passed")
		return 0, nil
	}

	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return 1, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			o.logger.Info("received_signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	go o.metrics.RunSampler(ctx, o.config.SampleInterval)

	tuiDone := o.startTUI(cancel)

	start := time.Now()
	code, err := o.execute(ctx)
	o.metrics.Sample()

	if tuiDone != nil {
		tui.SendQuit(o.program)
		<-tuiDone
	}

	o.logger.Info("run_finished",
		"exit_code", code,
		"elapsed", time.Since(start).String(),
		"error", err,
	)

	o.shutdown()
	return code, err
}

// startTUI launches the dashboard. Quitting it early cancels the run.
func (o *Orchestrator) startTUI(cancel context.CancelFunc) <-chan struct{} {
	if !o.config.TUIEnabled {
		return nil
	}
	model := tui.New(tui.Config{
		Command:     o.config.Command,
		Mode:        o.config.Mode,
		MetricsAddr: o.config.MetricsAddr,
		StatsSource: o.stats,
	})
	o.program = tea.NewProgram(model, tea.WithOutput(o.stderr))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := o.program.Run(); err != nil {
			o.logger.Warn("tui_error", "error", err)
		}
		cancel()
	}()
	return done
}

// shutdown stops the metrics server and writes the requested reports.
func (o *Orchestrator) shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if o.metricsServer != nil {
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}

	if o.config.MetricsFile != "" {
		if err := o.writeMetricsFile(); err != nil {
			o.logger.Warn("metrics_file_error", "path", o.config.MetricsFile, "error", err)
		}
	}

	if o.config.Summary {
		fmt.Fprint(o.stderr, stats.FormatExitSummary(o.stats.Summary(), stats.SummaryConfig{
			Command:      o.describe(),
			Mode:         o.config.Mode,
			MetricsAddr:  o.config.MetricsAddr,
			RecentStderr: o.lines.RecentLines(5),
		}))
	}
}

func (o *Orchestrator) writeMetricsFile() error {
	if o.config.MetricsFile == "-" {
		return metrics.WriteText(o.stdout, o.registry)
	}
	f, err := os.Create(o.config.MetricsFile)
	if err != nil {
		return err
	}
	if err := metrics.WriteText(f, o.registry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (o *Orchestrator) describe() string {
	if o.config.Script != "" {
		return "script " + o.config.Script
	}
	return o.config.Command
}

// Recorder returns the recorder every run reports to.
func (o *Orchestrator) Recorder() stream.Recorder {
	return stream.NewMultiRecorder(o.metrics, o.stats)
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Stats returns the run statistics for external access.
func (o *Orchestrator) Stats() *stats.RunStats {
	return o.stats
}

// Registry returns the Prometheus registry backing the collector.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}
