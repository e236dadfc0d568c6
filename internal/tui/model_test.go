package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-exec-stream/internal/parser"
	"github.com/randomizedcoder/go-exec-stream/internal/stats"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sendRecorder struct {
	msgs []tea.Msg
}

func (s *sendRecorder) Send(msg tea.Msg) { s.msgs = append(s.msgs, msg) }

type fixedStats struct{ s stats.Summary }

func (f fixedStats) Summary() stats.Summary { return f.s }

func newTestModel() (Model, *mockClock) {
	clock := &mockClock{now: time.Unix(1000, 0)}
	m := New(Config{Command: "make -j8", Mode: "lines", Clock: clock})
	m.width, m.height = 100, 40
	return m, clock
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// =============================================================================
// Callback Tests
// =============================================================================

func TestCallback_ForwardsEvents(t *testing.T) {
	rec := &sendRecorder{}
	cb := Callback(rec)
	ctx := context.Background()

	events := []stream.Event{
		stream.LineEvent{Line: "a", Seq: 1},
		stream.ErrorEvent{Message: "warn", Stream: parser.Stderr, Cause: stream.CauseStderr},
		stream.FinalEvent{Success: true, TotalLines: 1},
	}
	for _, ev := range events {
		if err := cb(ctx, ev); err != nil {
			t.Fatalf("callback: %v", err)
		}
	}

	if len(rec.msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(rec.msgs))
	}
	if lm, ok := rec.msgs[0].(LineMsg); !ok || lm.Line != "a" {
		t.Errorf("msg[0] = %#v", rec.msgs[0])
	}
	if em, ok := rec.msgs[1].(ErrorMsg); !ok || em.Message != "warn" {
		t.Errorf("msg[1] = %#v", rec.msgs[1])
	}
	if fm, ok := rec.msgs[2].(FinalMsg); !ok || !fm.Success {
		t.Errorf("msg[2] = %#v", rec.msgs[2])
	}
}

func TestSendQuit(t *testing.T) {
	rec := &sendRecorder{}
	SendQuit(rec)
	SendQuit(nil)
	if len(rec.msgs) != 1 {
		t.Fatalf("got %d messages", len(rec.msgs))
	}
	if _, ok := rec.msgs[0].(QuitMsg); !ok {
		t.Errorf("msg = %#v", rec.msgs[0])
	}
}

// =============================================================================
// Update Tests
// =============================================================================

func TestUpdate_Lines(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(t, m, LineMsg{Line: "one", Seq: 1, LinesPerSecond: 2})
	m, _ = update(t, m, ErrorMsg{Message: "oops"})
	m, _ = update(t, m, LineMsg{Line: "two", Seq: 2, LinesPerSecond: 4})

	if m.LinesSeen() != 2 {
		t.Errorf("LinesSeen() = %d, want 2", m.LinesSeen())
	}
	if got := m.RecentStdout(); len(got) != 2 || got[1] != "two" {
		t.Errorf("RecentStdout() = %v", got)
	}
	if got := m.RecentStderr(); len(got) != 1 || got[0] != "oops" {
		t.Errorf("RecentStderr() = %v", got)
	}
	if m.lastRate != 4 {
		t.Errorf("lastRate = %v", m.lastRate)
	}
}

func TestUpdate_RecentIsBounded(t *testing.T) {
	m, _ := newTestModel()
	for i := 1; i <= maxRecent+25; i++ {
		m, _ = update(t, m, LineMsg{Line: "x", Seq: int64(i)})
	}
	if got := len(m.RecentStdout()); got != maxRecent {
		t.Errorf("len(RecentStdout()) = %d, want %d", got, maxRecent)
	}
	if m.LinesSeen() != maxRecent+25 {
		t.Errorf("LinesSeen() = %d", m.LinesSeen())
	}
}

func TestUpdate_PauseFreezesPanes(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(t, m, LineMsg{Line: "before", Seq: 1})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m, _ = update(t, m, LineMsg{Line: "during", Seq: 2})

	if got := m.RecentStdout(); len(got) != 1 {
		t.Errorf("paused pane grew: %v", got)
	}
	if m.LinesSeen() != 2 {
		t.Error("counters keep running while paused")
	}
	if !strings.Contains(m.View(), "paused") {
		t.Error("header should show paused")
	}
}

func TestUpdate_ToggleStderr(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(t, m, ErrorMsg{Message: "boom"})
	if !strings.Contains(m.View(), "boom") {
		t.Fatal("stderr pane should be visible by default")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if strings.Contains(m.View(), "boom") {
		t.Error("stderr pane should be hidden")
	}
}

func TestUpdate_TickSamplesStats(t *testing.T) {
	m, clock := newTestModel()
	m.statsSource = fixedStats{stats.Summary{Callbacks: 3, CallbackP95: 2 * time.Millisecond}}

	m, _ = update(t, m, TickMsg(clock.Now()))
	for i := 1; i <= 10; i++ {
		m, _ = update(t, m, LineMsg{Line: "x", Seq: int64(i)})
	}
	clock.Advance(time.Second)
	m, cmd := update(t, m, TickMsg(clock.Now()))

	if cmd == nil {
		t.Error("tick should reschedule while running")
	}
	if r := m.rate.GetStats().Rate1s; r != 10 {
		t.Errorf("Rate1s = %v, want 10", r)
	}
	if m.summary == nil || m.summary.Callbacks != 3 {
		t.Errorf("summary = %+v", m.summary)
	}
	if !strings.Contains(m.View(), "Callback P95") {
		t.Error("callback latency should render once callbacks ran")
	}
}

func TestUpdate_Final(t *testing.T) {
	m, clock := newTestModel()
	m, _ = update(t, m, FinalMsg{Success: false, ExitCode: 2, TotalLines: 5, TotalTime: 1.5})

	if !m.Finished() {
		t.Fatal("Finished() = false")
	}
	if m.Elapsed() != 1500*time.Millisecond {
		t.Errorf("Elapsed() = %v", m.Elapsed())
	}
	if _, cmd := update(t, m, TickMsg(clock.Now())); cmd != nil {
		t.Error("tick should stop after the final event")
	}
	if !strings.Contains(m.View(), "exit 2") {
		t.Error("view should show the exit code")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
	view := m.View()
	if !strings.Contains(view, "5 lines in 1.50s") {
		t.Errorf("quit view should keep the verdict: %q", view)
	}
}

func TestView_QuitWithoutFinal(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(t, m, QuitMsg{})
	if m.View() != "" {
		t.Errorf("View() = %q, want empty", m.View())
	}
}

func TestView_Running(t *testing.T) {
	m, clock := newTestModel()
	m.metricsAddr = "127.0.0.1:9090"
	clock.Advance(65 * time.Second)

	view := m.View()
	for _, want := range []string{"exec-stream", "running", "00:01:05", "make -j8", "(no output yet)", "http://127.0.0.1:9090/metrics"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_NarrowTerminal(t *testing.T) {
	m, _ := newTestModel()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	m, _ = update(t, m, LineMsg{Line: strings.Repeat("x", 500), Seq: 1})
	if m.View() == "" {
		t.Error("View() should render on tiny terminals")
	}
}

// =============================================================================
// Style Tests
// =============================================================================

func TestGetExitLabel(t *testing.T) {
	tests := []struct {
		success bool
		code    int
		want    string
	}{
		{true, 0, "exit 0"},
		{false, 1, "exit 1"},
		{false, -1, "signal"},
	}
	for _, tt := range tests {
		if got := GetExitLabel(tt.success, tt.code); !strings.Contains(got, tt.want) {
			t.Errorf("GetExitLabel(%v, %d) = %q, want %q", tt.success, tt.code, got, tt.want)
		}
	}
}

func TestGetStderrStyle(t *testing.T) {
	if GetStderrStyle("Error: disk full").GetForeground() != colorError {
		t.Error("error lines should be red")
	}
	if GetStderrStyle("Compiling foo v0.1").GetForeground() != colorWarning {
		t.Error("plain stderr should be yellow")
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"héllo", 3, "hé…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := clip(tt.in, tt.width); got != tt.want {
			t.Errorf("clip(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPaneHeights(t *testing.T) {
	m, _ := newTestModel()
	m.height = 44
	out, errRows := m.paneHeights()
	if out+errRows != 30 || errRows != 10 {
		t.Errorf("paneHeights() = %d, %d", out, errRows)
	}

	m.showErr = false
	if out, errRows := m.paneHeights(); out != 30 || errRows != 0 {
		t.Errorf("paneHeights() without stderr = %d, %d", out, errRows)
	}

	m.height = 3
	if out, _ := m.paneHeights(); out != 4 {
		t.Errorf("minimum stdout rows = %d, want 4", out)
	}
}
