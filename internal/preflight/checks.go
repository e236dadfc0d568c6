// Package preflight provides startup validation checks.
package preflight

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/randomizedcoder/go-exec-stream/internal/process"
)

// Each run holds two pipes and a handful of runtime descriptors.
const fdsPerRun = 16

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects which environment-dependent checks run.
type Options struct {
	Platform    process.Platform
	Runs        int    // expected concurrent child processes (scripts may spawn several)
	Script      string // checked for readability when set
	Dir         string // checked for existence when set
	MetricsAddr string // checked for bindability when set
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

func (r *Result) add(c Check) {
	r.Checks = append(r.Checks, c)
	if !c.Passed {
		r.Passed = false
	}
}

// RunAll executes all preflight checks.
func RunAll(ctx context.Context, opts Options) *Result {
	if opts.Runs < 1 {
		opts.Runs = 1
	}
	result := &Result{
		Checks: make([]Check, 0, 6),
		Passed: true,
	}

	result.add(checkShell(ctx, opts.Platform))
	result.add(checkFileDescriptors(opts.Runs))
	result.add(checkProcessLimit(opts.Runs))

	if opts.Script != "" {
		result.add(checkScript(opts.Script))
	}
	if opts.Dir != "" {
		result.add(checkDir(opts.Dir))
	}
	if opts.MetricsAddr != "" {
		result.add(checkListen(opts.MetricsAddr))
	}

	return result
}

// checkShell verifies the platform shell can be resolved.
func checkShell(ctx context.Context, p process.Platform) Check {
	shell := process.ShellArgv("", p)[0]

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	path, ok := process.Which(ctx, shell)
	if !ok {
		return Check{
			Name:    "shell",
			Passed:  false,
			Message: fmt.Sprintf("%s not found on PATH", shell),
		}
	}
	return Check{
		Name:    "shell",
		Passed:  true,
		Message: fmt.Sprintf("%s found at %s", shell, path),
	}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors(runs int) Check {
	required := runs*fdsPerRun + 32
	actual, ok := fileDescriptorLimit()
	if !ok {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check on this platform",
		}
	}

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d runs)", actual, required, runs),
	}
}

// checkProcessLimit reads the soft process limit from /proc/self/limits.
func checkProcessLimit(runs int) Check {
	required := runs + 16

	data, err := os.ReadFile("/proc/self/limits")
	if err != nil {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	actual := parseMaxProcesses(string(data))
	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, required),
	}
}

// parseMaxProcesses extracts the soft "Max processes" value, 0 if absent.
func parseMaxProcesses(limits string) int {
	for _, line := range strings.Split(limits, "\n") {
		if !strings.HasPrefix(line, "Max processes") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return 0
		}
		if fields[2] == "unlimited" {
			return 1000000
		}
		var n int
		fmt.Sscanf(fields[2], "%d", &n)
		return n
	}
	return 0
}

func checkScript(path string) Check {
	f, err := os.Open(path)
	if err != nil {
		return Check{Name: "script", Passed: false, Message: err.Error()}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Check{Name: "script", Passed: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: "script", Passed: false, Message: fmt.Sprintf("%s is a directory", path)}
	}
	return Check{Name: "script", Passed: true, Message: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

func checkDir(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "working_dir", Passed: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: "working_dir", Passed: false, Message: fmt.Sprintf("%s is not a directory", path)}
	}
	return Check{Name: "working_dir", Passed: true, Message: path}
}

// checkListen verifies the metrics address can be bound, then releases it.
func checkListen(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{Name: "metrics_addr", Passed: false, Message: err.Error()}
	}
	bound := ln.Addr().String()
	ln.Close()
	return Check{Name: "metrics_addr", Passed: true, Message: fmt.Sprintf("%s is free", bound)}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "shell":
		return "ensure sh (or cmd.exe on Windows) is on PATH"
	case "file_descriptors":
		return "ulimit -n 8192 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	case "script":
		return "check the -script path and its permissions"
	case "working_dir":
		return "create the directory or fix -dir"
	case "metrics_addr":
		return "pick a free port with -metrics"
	default:
		return "see documentation"
	}
}
