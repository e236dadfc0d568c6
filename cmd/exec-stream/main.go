// Package main provides the exec-stream CLI entry point.
//
// exec-stream runs a shell command and streams its output line by line,
// with optional retries, a live dashboard, Prometheus metrics and Lua
// build scripts.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-exec-stream/internal/config"
	"github.com/randomizedcoder/go-exec-stream/internal/logging"
	"github.com/randomizedcoder/go-exec-stream/internal/orchestrator"
	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/exec-stream
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("exec-stream %s\n", version)
			return 0
		}
	}

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 2
	}

	// The dashboard owns the terminal; logs would tear it.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", cfg.LogLevel)
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n%v\n", err)
		return 2
	}

	if cfg.Check {
		config.ApplyCheckMode(cfg)
		logger.Info("check_mode_enabled", "command", cfg.Command, "script", cfg.Script)
	}

	if cfg.PrintCmd {
		spec := process.NewCommandSpec(cfg.Command)
		spec.Dir = cfg.Dir
		spec.Env = cfg.Env
		fmt.Println(spec.String())
		return 0
	}

	logger.Info("starting",
		"version", version,
		"command", cfg.Command,
		"script", cfg.Script,
		"mode", cfg.Mode,
		"retries", cfg.Retries,
		"metrics_addr", cfg.MetricsAddr,
	)

	orch := orchestrator.New(cfg, logger, orchestrator.Options{})
	code, err := orch.Run(context.Background())
	if err != nil {
		logger.Error("run_failed", "error", err)
		if !cfg.TUIEnabled {
			fmt.Fprintf(os.Stderr, "exec-stream: %v\n", err)
		}
	}
	return code
}
