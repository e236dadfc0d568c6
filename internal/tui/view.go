package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-exec-stream/internal/stats"
)

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderCounters(),
	}

	outHeight, errHeight := m.paneHeights()
	sections = append(sections, m.renderPane("stdout", m.stdout, outHeight, false))
	if m.showErr {
		sections = append(sections, m.renderPane("stderr", m.stderr, errHeight, true))
	}
	if m.final != nil {
		sections = append(sections, m.renderVerdict())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// paneHeights splits the rows left after the fixed sections.
func (m Model) paneHeights() (int, int) {
	free := m.height - 14
	if free < 4 {
		free = 4
	}
	if !m.showErr {
		return free, 0
	}
	errRows := free / 3
	if errRows < 2 {
		errRows = 2
	}
	return free - errRows, errRows
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	status := statusOK.Render("● running")
	switch {
	case m.final != nil:
		status = GetExitLabel(m.final.Success, m.final.ExitCode)
	case m.paused:
		status = statusWarning.Render("❚❚ paused")
	}

	header := fmt.Sprintf(" exec-stream │ %s │ %s │ Elapsed: %s ",
		m.mode, status, stats.FormatDuration(m.Elapsed()))
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Counters
// =============================================================================

func (m Model) renderCounters() string {
	r := m.rate.GetStats()

	left := []string{
		RenderKeyValue("Command", clip(m.command, m.width/2-20)),
		RenderKeyValue("stdout lines", stats.FormatNumber(m.lastSeq)),
		RenderKeyValue("stderr lines", stats.FormatNumber(m.errLines)),
		RenderKeyValue("Overall", stats.FormatRate(m.lastRate)),
	}
	right := []string{
		RenderKeyValue("Rate 1s", stats.FormatRate(r.Rate1s)),
		RenderKeyValue("Rate 10s", stats.FormatRate(r.Rate10s)),
		RenderKeyValue("Rate 60s", stats.FormatRate(r.Rate60s)),
	}
	if s := m.summary; s != nil && s.Callbacks > 0 {
		right = append(right, RenderKeyValue("Callback P95", stats.FormatMs(s.CallbackP95)))
	}

	colWidth := (m.width - 6) / 2
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(colWidth).Render(lipgloss.JoinVertical(lipgloss.Left, left...)),
		lipgloss.JoinVertical(lipgloss.Left, right...),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Output Panes
// =============================================================================

func (m Model) renderPane(title string, lines []string, height int, isErr bool) string {
	if height < 1 {
		height = 1
	}
	start := 0
	if len(lines) > height {
		start = len(lines) - height
	}

	width := m.width - 6
	rows := make([]string, 0, height+1)
	rows = append(rows, sectionHeaderStyle.Render(title))
	for _, line := range lines[start:] {
		line = clip(line, width)
		if isErr {
			rows = append(rows, GetStderrStyle(line).Render(line))
		} else {
			rows = append(rows, lineStyle.Render(line))
		}
	}
	if len(lines) == 0 {
		rows = append(rows, dimStyle.Render("(no output yet)"))
	}
	return boxStyle.Width(m.width - 2).Render(strings.Join(rows, "\n"))
}

// =============================================================================
// Verdict & Footer
// =============================================================================

func (m Model) renderVerdict() string {
	if m.final == nil {
		return ""
	}
	f := m.final
	return fmt.Sprintf("%s  %s lines in %.2fs",
		GetExitLabel(f.Success, f.ExitCode),
		stats.FormatNumber(f.TotalLines),
		f.TotalTime,
	)
}

func (m Model) renderFooter() string {
	parts := []string{"q: quit", "p: pause", "e: toggle stderr"}
	if m.metricsAddr != "" {
		parts = append(parts, "metrics: http://"+m.metricsAddr+"/metrics")
	}
	return footerStyle.Render(strings.Join(parts, mutedStyle.Render(" • ")))
}
