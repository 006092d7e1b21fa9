package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	successThreshold = 85.0
	warningThreshold = 60.0
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff2323"))
	grayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// tintPct colors text green, yellow or red by coverage percentage.
func tintPct(pct float64, text string, color bool) string {
	if !color {
		return text
	}
	switch {
	case pct >= successThreshold:
		return successStyle.Render(text)
	case pct >= warningThreshold:
		return warningStyle.Render(text)
	default:
		return dangerStyle.Render(text)
	}
}

// bar renders a fixed-width progress bar. The filled part carries the
// percentage tint, the rest is gray.
func bar(pct float64, width int, unicode, color bool) string {
	if width < 0 {
		width = 0
	}
	filled := int(pct/100.0*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	solid, empty := "#", "-"
	if unicode {
		solid, empty = "█", "░"
	}
	solidText := strings.Repeat(solid, filled)
	emptyText := strings.Repeat(empty, width-filled)
	if !color {
		return solidText + emptyText
	}
	return tintPct(pct, solidText, color) + grayStyle.Render(emptyText)
}
