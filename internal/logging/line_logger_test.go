package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

func newTestLineLogger(verbose bool) (*LineLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLineLogger(NewLoggerWithWriter(&buf, "text", "debug"), verbose), &buf
}

func stderrEvent(line string) stream.ErrorEvent {
	return stream.ErrorEvent{Message: line, Stream: parser.Stderr, Cause: stream.CauseStderr}
}

func TestLineLogger_Events(t *testing.T) {
	l, buf := newTestLineLogger(true)
	cb := l.Callback()
	ctx := context.Background()

	events := []stream.Event{
		stream.LineEvent{Line: "compiling", Seq: 1},
		stderrEvent("warning: unused"),
		stream.ErrorEvent{Message: "[stdout:invalid-utf8] x", Stream: parser.Stdout, Cause: stream.CauseDecode},
		stream.FinalEvent{Success: false, ExitCode: 2, TotalLines: 1},
	}
	for _, ev := range events {
		if err := cb(ctx, ev); err != nil {
			t.Fatalf("callback(%T) error: %v", ev, err)
		}
	}

	out := buf.String()
	for _, want := range []string{
		"msg=stdout_line",
		"line=compiling",
		"msg=stderr_line",
		"msg=stream_error",
		"cause=decode",
		"msg=process_finished",
		"exit_code=2",
		"level=WARN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestLineLogger_QuietDropsDebugStderr(t *testing.T) {
	l, buf := newTestLineLogger(false)
	cb := l.Callback()

	cb(context.Background(), stderrEvent("progress 10%"))
	cb(context.Background(), stderrEvent("fatal: bad object"))

	out := buf.String()
	if strings.Contains(out, "progress 10%") {
		t.Error("non-verbose logger logged a debug stderr line")
	}
	if !strings.Contains(out, "fatal: bad object") {
		t.Error("non-verbose logger dropped a warning stderr line")
	}
	if got := l.RecentLines(10); len(got) != 2 {
		t.Errorf("RecentLines() = %q, want both lines buffered", got)
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want slog.Level
	}{
		{"Error: something", slog.LevelWarn},
		{"WARNING: deprecated", slog.LevelWarn},
		{"sh: 1: foo: not found", slog.LevelWarn},
		{"open x: permission denied", slog.LevelWarn},
		{"Downloading 50%", slog.LevelDebug},
		{"", slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := classifyLine(tt.line); got != tt.want {
				t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestLineLogger_RecentLines(t *testing.T) {
	l, _ := newTestLineLogger(false)
	cb := l.Callback()

	if got := l.RecentLines(5); len(got) != 0 {
		t.Errorf("empty RecentLines() = %q", got)
	}

	for i := 0; i < MaxBufferedLines+10; i++ {
		cb(context.Background(), stderrEvent(fmt.Sprintf("line %d", i)))
	}

	got := l.RecentLines(3)
	want := []string{
		fmt.Sprintf("line %d", MaxBufferedLines+7),
		fmt.Sprintf("line %d", MaxBufferedLines+8),
		fmt.Sprintf("line %d", MaxBufferedLines+9),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecentLines(3) = %q, want %q", got, want)
	}
	if n := len(l.RecentLines(MaxBufferedLines * 2)); n != MaxBufferedLines {
		t.Errorf("RecentLines(200) returned %d lines", n)
	}
}

func TestLineLogger_Truncation(t *testing.T) {
	l, _ := newTestLineLogger(false)
	l.Callback()(context.Background(), stderrEvent(strings.Repeat("x", MaxLineLength+100)))

	got := l.RecentLines(1)[0]
	if !strings.HasSuffix(got, "...(truncated)") || len(got) != MaxLineLength+len("...(truncated)") {
		t.Errorf("truncated line has length %d", len(got))
	}
}

func TestLineLogger_CountErrors(t *testing.T) {
	l, _ := newTestLineLogger(false)
	cb := l.Callback()
	for _, line := range []string{"error: a", "Error: b", "timed out", "all good"} {
		cb(context.Background(), stderrEvent(line))
	}

	counts := l.CountErrors()
	if counts["error"] != 2 || counts["timed out"] != 1 {
		t.Errorf("CountErrors() = %v", counts)
	}
}

func TestLineLogger_Concurrent(t *testing.T) {
	l, _ := newTestLineLogger(false)
	cb := l.Callback()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cb(context.Background(), stderrEvent(fmt.Sprintf("g%d-%d", id, j)))
				_ = l.RecentLines(5)
			}
		}(i)
	}
	wg.Wait()

	if n := len(l.RecentLines(MaxBufferedLines)); n != MaxBufferedLines {
		t.Errorf("RecentLines() returned %d lines", n)
	}
}
