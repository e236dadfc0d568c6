package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-exec-stream/internal/stats"
	"github.com/randomizedcoder/go-exec-stream/internal/stream"
	"github.com/randomizedcoder/go-exec-stream/internal/timeseries"
)

// maxRecent bounds each of the stdout and stderr panes.
const maxRecent = 200

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// LineMsg carries one stdout line.
type LineMsg stream.LineEvent

// ErrorMsg carries one stderr or error line.
type ErrorMsg stream.ErrorEvent

// FinalMsg carries the end-of-run summary.
type FinalMsg stream.FinalEvent

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	command     string
	mode        string
	metricsAddr string

	// Current state
	stdout    []string
	stderr    []string
	lastSeq   int64
	lastRate  float64
	errLines  int64
	final     *stream.FinalEvent
	summary   *stats.Summary
	startTime time.Time
	paused    bool
	showErr   bool

	// Display options
	width  int
	height int

	statsSource StatsSource
	rate        *timeseries.LineRateTracker
	clock       timeseries.Clock

	quitting bool
}

// StatsSource provides a run summary snapshot.
type StatsSource interface {
	Summary() stats.Summary
}

// Config holds TUI configuration.
type Config struct {
	Command     string
	Mode        string
	MetricsAddr string
	StatsSource StatsSource
	Clock       timeseries.Clock
}

// New creates a new TUI model.
func New(cfg Config) Model {
	clock := cfg.Clock
	if clock == nil {
		clock = timeseries.RealClock{}
	}
	return Model{
		command:     cfg.Command,
		mode:        cfg.Mode,
		metricsAddr: cfg.MetricsAddr,
		statsSource: cfg.StatsSource,
		rate:        timeseries.NewLineRateTrackerWithClock(clock),
		clock:       clock,
		startTime:   clock.Now(),
		showErr:     true,
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			return m, nil
		case "e":
			m.showErr = !m.showErr
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.rate.RecordSample()
		if m.statsSource != nil {
			s := m.statsSource.Summary()
			m.summary = &s
		}
		if m.final != nil {
			return m, nil
		}
		return m, tickCmd()

	case LineMsg:
		m.lastSeq = msg.Seq
		m.lastRate = msg.LinesPerSecond
		m.rate.AddLines(1)
		if !m.paused {
			m.stdout = appendRecent(m.stdout, msg.Line)
		}
		return m, nil

	case ErrorMsg:
		m.errLines++
		if !m.paused {
			m.stderr = appendRecent(m.stderr, msg.Message)
		}
		return m, nil

	case FinalMsg:
		ev := stream.FinalEvent(msg)
		m.final = &ev
		m.rate.RecordSample()
		if m.statsSource != nil {
			s := m.statsSource.Summary()
			m.summary = &s
		}
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		if m.final != nil {
			return m.renderVerdict() + "\n"
		}
		return ""
	}
	return m.renderDashboard()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func appendRecent(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxRecent {
		lines = lines[len(lines)-maxRecent:]
	}
	return lines
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	if m.final != nil {
		return time.Duration(m.final.TotalTime * float64(time.Second))
	}
	return m.clock.Now().Sub(m.startTime)
}

// LinesSeen returns the latest stdout sequence number.
func (m Model) LinesSeen() int64 {
	return m.lastSeq
}

// Finished reports whether the final event has arrived.
func (m Model) Finished() bool {
	return m.final != nil
}

// RecentStdout returns the buffered stdout lines, oldest first.
func (m Model) RecentStdout() []string {
	return m.stdout
}

// RecentStderr returns the buffered stderr lines, oldest first.
func (m Model) RecentStderr() []string {
	return m.stderr
}

// =============================================================================
// Helper for external use
// =============================================================================

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Callback returns a stream.Callback that forwards every event to the
// program as a TUI message.
func Callback(p Sender) stream.Callback {
	return func(_ context.Context, ev stream.Event) error {
		switch ev := ev.(type) {
		case stream.LineEvent:
			p.Send(LineMsg(ev))
		case stream.ErrorEvent:
			p.Send(ErrorMsg(ev))
		case stream.FinalEvent:
			p.Send(FinalMsg(ev))
		}
		return nil
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p Sender) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
