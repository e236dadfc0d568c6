package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// envList is a custom flag type for repeatable -env flags.
type envList []string

func (e *envList) String() string {
	return strings.Join(*e, ", ")
}

func (e *envList) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("expected KEY=VALUE, got %q", value)
	}
	*e = append(*e, value)
	return nil
}

// ParseFlags parses os.Args into a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(flag.CommandLine, os.Args[1:])
}

// ParseArgs registers every flag on fs, parses args and returns a Config.
// Positional arguments are joined with spaces into the command line.
func ParseArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()
	var env envList

	fs.Usage = func() { printUsage(fs) }

	// Command
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Working directory for the command")
	fs.Var(&env, "env", "Extra KEY=VALUE for the child environment (can repeat)")

	// Streaming
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, `Run mode: "lines", "realtime", "buffered", "silent", "streaming"`)
	fs.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "Read size in realtime mode")
	fs.IntVar(&cfg.MaxLineSize, "max-line", cfg.MaxLineSize, "Longest line delivered whole; longer lines are split")

	// Retry
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Re-run a failed command up to N times")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial delay between retries")
	fs.DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "Maximum delay between retries")

	// Scripting
	fs.StringVar(&cfg.Script, "script", cfg.Script, "Run a Lua script instead of a command")
	fs.StringVar(&cfg.Target, "target", cfg.Target, "Value of the script's `target` global")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Serve Prometheus metrics on this address (empty = off)")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, `Write a metrics dump at exit ("-" = stdout)`)
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval, "Line-rate sampling interval")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
	fs.BoolVar(&cfg.Summary, "summary", cfg.Summary, "Print an exit summary to stderr")

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Show a live terminal dashboard")

	// Safety & Diagnostics
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the shell invocation and exit")
	fs.BoolVar(&cfg.Check, "check", cfg.Check, "Validate config, run preflight checks and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Env = env
	cfg.Command = strings.Join(fs.Args(), " ")
	return cfg, nil
}

func printUsage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, `exec-stream - run a shell command and stream its output line by line

Usage:
  exec-stream [flags] <command...>
  exec-stream [flags] -script build.lua

Command:
`)
	printFlagCategory(fs, []string{"dir", "env"})

	fmt.Fprintf(w, "\nStreaming:\n")
	printFlagCategory(fs, []string{"mode", "chunk-size", "max-line"})

	fmt.Fprintf(w, "\nRetry:\n")
	printFlagCategory(fs, []string{"retries", "retry-backoff", "retry-max"})

	fmt.Fprintf(w, "\nScripting:\n")
	printFlagCategory(fs, []string{"script", "target"})

	fmt.Fprintf(w, "\nObservability:\n")
	printFlagCategory(fs, []string{"metrics", "metrics-file", "sample-interval", "v", "log-format", "log-level", "summary"})

	fmt.Fprintf(w, "\nDashboard:\n")
	printFlagCategory(fs, []string{"tui"})

	fmt.Fprintf(w, "\nSafety & Diagnostics:\n")
	printFlagCategory(fs, []string{"print-cmd", "check", "skip-preflight"})

	fmt.Fprintf(w, `
Examples:
  # Stream a build, one event per line
  exec-stream -mode lines make -j8

  # Low-latency reads for tools that print partial lines
  exec-stream -mode realtime -tui 'curl -# -o /dev/null https://example.com/big.iso'

  # Retry a flaky download three times
  exec-stream -retries 3 -mode silent 'curl -fsSO https://example.com/pkg.tar.gz'

  # Run a Lua build script
  exec-stream -script build.lua -target release

`)
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, names []string) {
	w := fs.Output()
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				writeFlag(w, f)
				return
			}
		}
	})
}

func writeFlag(w io.Writer, f *flag.Flag) {
	fmt.Fprintf(w, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
	if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
		fmt.Fprintf(w, " (default %s)", f.DefValue)
	}
	fmt.Fprintln(w)
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch f.DefValue {
	case "true", "false":
		return ""
	}
	if _, ok := f.Value.(*envList); ok {
		return "KEY=VALUE"
	}
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
			return "duration"
		}
	}
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}
	return "string"
}
