package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Command is the command line that was run.
	Command string

	// Mode is the read mode ("lines", "realtime", ...).
	Mode string

	// MetricsAddr is the Prometheus metrics endpoint address, if served.
	MetricsAddr string

	// RecentStderr is the tail of the child's stderr, oldest first.
	RecentStderr []string
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// FormatExitSummary formats a run summary for display at program exit.
func FormatExitSummary(s Summary, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(heavyRule)
	b.WriteString("                          exec-stream Exit Summary\n")
	b.WriteString(heavyRule + "\n")

	if cfg.Command != "" {
		fmt.Fprintf(&b, "Command:                %s\n", cfg.Command)
	}
	if cfg.Mode != "" {
		fmt.Fprintf(&b, "Mode:                   %s\n", cfg.Mode)
	}

	if s.SpawnFailed {
		b.WriteString("Result:                 spawn failed\n\n")
		return b.String()
	}

	fmt.Fprintf(&b, "PID:                    %d\n", s.PID)
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(s.Runtime))
	fmt.Fprintf(&b, "Result:                 %s\n\n", formatResult(s))

	b.WriteString(section("Output"))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Stdout lines", FormatNumber(s.StdoutLines))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Stderr lines", FormatNumber(s.StderrLines))
	fmt.Fprintf(&b, "  %-24s %12s\n", "Throughput", FormatRate(s.LinesPerSecond))
	if s.DecodeErrors > 0 {
		fmt.Fprintf(&b, "  %-24s %12s\n", "Invalid UTF-8 lines", FormatNumber(s.DecodeErrors))
	}
	if s.ReadErrors > 0 {
		fmt.Fprintf(&b, "  %-24s %12s\n", "Stream read errors", FormatNumber(s.ReadErrors))
	}
	b.WriteString("\n")

	if s.Callbacks > 0 {
		b.WriteString(section("Callback Latency"))
		fmt.Fprintf(&b, "  %-8s %12s %12s %12s %12s\n", "Calls", "P50", "P95", "P99", "Max")
		fmt.Fprintf(&b, "  %-8s %12s %12s %12s %12s\n",
			FormatNumber(s.Callbacks),
			FormatMs(s.CallbackP50),
			FormatMs(s.CallbackP95),
			FormatMs(s.CallbackP99),
			FormatMs(s.CallbackMax),
		)
		if s.LineGapP50 > 0 || s.LineGapP99 > 0 {
			fmt.Fprintf(&b, "\n  Line gap:  P50 %s  P95 %s  P99 %s\n",
				FormatMs(s.LineGapP50), FormatMs(s.LineGapP95), FormatMs(s.LineGapP99))
		}
		b.WriteString("\n")
	}

	if len(cfg.RecentStderr) > 0 {
		b.WriteString(section("Recent stderr"))
		for _, line := range cfg.RecentStderr {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics were served at http://%s/metrics\n\n", cfg.MetricsAddr)
	}
	return b.String()
}

func section(title string) string {
	pad := (79 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	return lightRule + strings.Repeat(" ", pad) + title + "\n" + lightRule + "\n"
}

func formatResult(s Summary) string {
	if !s.Exited {
		return "did not exit normally"
	}
	if s.ExitCode < 0 {
		return "terminated by signal"
	}
	label := exitCodeLabel(s.ExitCode)
	if label == "" {
		return fmt.Sprintf("exit %d", s.ExitCode)
	}
	return fmt.Sprintf("exit %d %s", s.ExitCode, label)
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 126:
		return "(not executable)"
	case 127:
		return "(command not found)"
	case 130:
		return "(SIGINT)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}

// FormatRate formats a lines/second rate.
func FormatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	if rate >= 1 {
		return fmt.Sprintf("%.1f/s", rate)
	}
	return fmt.Sprintf("%.2f/s", rate)
}
