package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validModes = map[string]bool{
	ModeLines:     true,
	ModeRealtime:  true,
	ModeBuffered:  true,
	ModeSilent:    true,
	ModeStreaming: true,
}

// Validate checks the configuration for errors and inconsistencies.
// All problems are reported together via errors.Join.
func Validate(cfg *Config) error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	hasCommand := strings.TrimSpace(cfg.Command) != ""
	switch {
	case !hasCommand && cfg.Script == "":
		add("command", "a command or -script is required")
	case hasCommand && cfg.Script != "":
		add("script", "cannot be combined with a command")
	case cfg.PrintCmd && !hasCommand:
		add("print_cmd", "requires a command")
	}

	if !validModes[cfg.Mode] {
		add("mode", "must be one of: lines, realtime, buffered, silent, streaming (got %q)", cfg.Mode)
	}
	if cfg.ChunkSize < 1 {
		add("chunk_size", "must be at least 1")
	}
	if cfg.MaxLineSize < 1 {
		add("max_line_size", "must be at least 1")
	}

	if cfg.Retries < 0 {
		add("retries", "must not be negative")
	}
	if cfg.Retries > 0 && cfg.Script != "" {
		add("retries", "not supported with -script")
	}
	if cfg.RetryBackoff < 0 || cfg.RetryMax < cfg.RetryBackoff {
		add("retry_backoff", "must be non-negative and not exceed -retry-max")
	}

	if cfg.TUIEnabled && cfg.Script == "" && (cfg.Mode != ModeLines && cfg.Mode != ModeRealtime) {
		add("tui", "requires -mode lines or realtime (got %q)", cfg.Mode)
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			add("metrics_addr", "must be host:port (%v)", err)
		}
	}
	if cfg.SampleInterval <= 0 {
		add("sample_interval", "must be positive")
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		add("log_format", "must be 'json' or 'text' (got %q)", cfg.LogFormat)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
