package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

const (
	// MaxLineLength is the longest line logged before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is how many stderr lines are kept for the exit summary.
	MaxBufferedLines = 100
)

// LineLogger logs a child's events and keeps the most recent stderr lines.
//
// stdout lines are logged at debug. stderr lines are classified by content
// and, unless verbose, only warnings are logged. The final event is logged
// at info (warn on failure).
type LineLogger struct {
	logger  *slog.Logger
	verbose bool

	buffer []string
	bufIdx int
	count  int
	mu     sync.Mutex
}

// NewLineLogger creates a LineLogger.
func NewLineLogger(logger *slog.Logger, verbose bool) *LineLogger {
	return &LineLogger{
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// Callback returns the stream.Callback that feeds this logger. It never
// fails.
func (l *LineLogger) Callback() stream.Callback {
	return stream.Handlers{
		OnLine:  l.onLine,
		OnError: l.onError,
		OnFinal: l.onFinal,
	}.Callback()
}

func (l *LineLogger) onLine(ctx context.Context, ev stream.LineEvent) error {
	l.logger.DebugContext(ctx, "stdout_line",
		"seq", ev.Seq,
		"line", truncate(ev.Line),
		"lines_per_second", ev.LinesPerSecond,
	)
	return nil
}

func (l *LineLogger) onError(ctx context.Context, ev stream.ErrorEvent) error {
	line := truncate(ev.Message)

	if ev.Cause != stream.CauseStderr {
		l.logger.WarnContext(ctx, "stream_error",
			"stream", ev.Stream.String(),
			"cause", ev.Cause.String(),
			"message", line,
			"seq", ev.Seq,
		)
		return nil
	}

	l.mu.Lock()
	l.buffer[l.bufIdx] = line
	l.bufIdx = (l.bufIdx + 1) % MaxBufferedLines
	l.count++
	l.mu.Unlock()

	level := classifyLine(line)
	if !l.verbose && level == slog.LevelDebug {
		return nil
	}
	l.logger.Log(ctx, level, "stderr_line", "seq", ev.Seq, "line", line)
	return nil
}

func (l *LineLogger) onFinal(ctx context.Context, ev stream.FinalEvent) error {
	level := slog.LevelInfo
	if !ev.Success {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "process_finished",
		"success", ev.Success,
		"exit_code", ev.ExitCode,
		"total_lines", ev.TotalLines,
		"total_time", ev.TotalTime,
	)
	return nil
}

func truncate(line string) string {
	if len(line) > MaxLineLength {
		return line[:MaxLineLength] + "...(truncated)"
	}
	return line
}

// classifyLine picks a log level for a stderr line based on content.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)
	for _, p := range ErrorPatterns {
		if strings.Contains(lower, p) {
			return slog.LevelWarn
		}
	}
	return slog.LevelDebug
}

// RecentLines returns up to n of the most recent stderr lines, oldest first.
func (l *LineLogger) RecentLines(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}
	if n > l.count {
		n = l.count
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		lines = append(lines, l.buffer[idx])
	}
	return lines
}

// ErrorPatterns are lowercase substrings that mark a stderr line as a warning.
var ErrorPatterns = []string{
	"error",
	"fatal",
	"panic",
	"warning",
	"failed",
	"permission denied",
	"not found",
	"no such file",
	"timeout",
	"timed out",
}

// CountErrors counts buffered stderr lines per matching pattern.
func (l *LineLogger) CountErrors() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int)
	for _, line := range l.buffer {
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, pattern := range ErrorPatterns {
			if strings.Contains(lower, pattern) {
				counts[pattern]++
			}
		}
	}
	return counts
}
