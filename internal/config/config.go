// Package config provides configuration management for exec-stream.
package config

import (
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
)

// Run modes accepted by -mode.
const (
	ModeLines     = "lines"     // per-line callback, line-buffered reads
	ModeRealtime  = "realtime"  // per-line callback, raw chunk reads
	ModeBuffered  = "buffered"  // capture everything, print at exit
	ModeSilent    = "silent"    // discard output, report success only
	ModeStreaming = "streaming" // echo both streams, print tagged transcript
)

// Config holds all configuration options for one exec-stream invocation.
type Config struct {
	// Command
	Command string   `json:"command"`
	Dir     string   `json:"dir"`
	Env     []string `json:"env"`

	// Streaming
	Mode        string `json:"mode"`
	ChunkSize   int    `json:"chunk_size"`
	MaxLineSize int    `json:"max_line_size"`

	// Retry
	Retries      int           `json:"retries"`
	RetryBackoff time.Duration `json:"retry_backoff"`
	RetryMax     time.Duration `json:"retry_max"`

	// Scripting
	Script string `json:"script"`
	Target string `json:"target"`

	// Observability
	MetricsAddr    string        `json:"metrics_addr"` // empty = disabled
	MetricsFile    string        `json:"metrics_file"` // text dump at exit, "-" = stdout
	SampleInterval time.Duration `json:"sample_interval"`
	Verbose        bool          `json:"verbose"`
	LogFormat      string        `json:"log_format"` // json, text
	LogLevel       string        `json:"log_level"`
	Summary        bool          `json:"summary"`

	// Dashboard
	TUIEnabled bool `json:"tui_enabled"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	Check         bool `json:"check"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeLines,
		ChunkSize:   parser.DefaultChunkSize,
		MaxLineSize: parser.DefaultMaxLineSize,

		RetryBackoff: 250 * time.Millisecond,
		RetryMax:     5 * time.Second,

		Target: "default",

		SampleInterval: time.Second,
		LogFormat:      "text",
		LogLevel:       "info",
	}
}

// Streams reports whether the mode delivers per-line events.
func (c *Config) Streams() bool {
	return c.Mode == ModeLines || c.Mode == ModeRealtime || c.Mode == ModeStreaming
}

// ApplyCheckMode modifies config for --check mode: validate, run preflight
// verbosely and exit without running anything.
func ApplyCheckMode(cfg *Config) {
	cfg.Verbose = true
	cfg.TUIEnabled = false
	cfg.SkipPreflight = false
}
