// Package tui provides a live terminal dashboard for a running command.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for styling.
// It shows the tail of stdout and stderr, line counters, rolling line rates,
// callback latency and the exit verdict once the process finishes.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-exec-stream/internal/logging"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorPrimary   = lipgloss.Color("#0EA5E9") // Sky
	colorSecondary = lipgloss.Color("#A78BFA") // Violet

	colorSuccess = lipgloss.Color("#22C55E") // Green
	colorWarning = lipgloss.Color("#EAB308") // Yellow
	colorError   = lipgloss.Color("#F43F5E") // Rose

	colorText      = lipgloss.Color("#F3F4F6")
	colorTextMuted = lipgloss.Color("#A1A1AA")
	colorTextDim   = lipgloss.Color("#71717A")
	colorBorder    = lipgloss.Color("#3F3F46")
)

// =============================================================================
// Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().Foreground(colorTextMuted)
	dimStyle   = lipgloss.NewStyle().Foreground(colorTextDim)
	lineStyle  = lipgloss.NewStyle().Foreground(colorText)

	statusOK      = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	statusWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	statusError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	footerStyle = lipgloss.NewStyle().Foreground(colorTextMuted)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)
)

// =============================================================================
// Status Indicators
// =============================================================================

// GetExitStyle returns the style for an exit code.
func GetExitStyle(success bool, code int) lipgloss.Style {
	switch {
	case success:
		return statusOK
	case code < 0:
		return statusWarning
	default:
		return statusError
	}
}

// GetExitLabel returns a styled verdict for a finished run.
func GetExitLabel(success bool, code int) string {
	style := GetExitStyle(success, code)
	switch {
	case success:
		return style.Render("✓ exit 0")
	case code < 0:
		return style.Render("⚠ terminated by signal")
	default:
		return style.Render(fmt.Sprintf("✗ exit %d", code))
	}
}

// GetStderrStyle highlights stderr lines that look like problems.
func GetStderrStyle(line string) lipgloss.Style {
	lower := strings.ToLower(line)
	for _, p := range logging.ErrorPatterns {
		if strings.Contains(lower, p) {
			return statusError
		}
	}
	return statusWarning
}

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// clip shortens s to width display cells.
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
