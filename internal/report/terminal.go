package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#9CA3AF")

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func categoryColor(c Category) lipgloss.Color {
	if c == Healthy {
		return colorSuccess
	}
	return colorError
}

func tierColor(t Tier) lipgloss.Color {
	if t == TierHigh {
		return colorSuccess
	}
	return colorWarning
}

// RenderTerminal formats r for a terminal. source names the input file.
func RenderTerminal(source string, r Report) string {
	var b strings.Builder

	b.WriteString(dimStyle.Render(source))
	b.WriteString("\n")
	b.WriteString(titleStyle.Foreground(categoryColor(r.Category)).Render("Prediction: " + DisplayLabel(r.Label)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(tierColor(r.Tier)).
		Render(fmt.Sprintf("Confidence: %s (%d%%)", r.Fraction(), r.Percent)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(r.Guidance))

	return boxStyle.BorderForeground(categoryColor(r.Category)).Render(b.String())
}

// RenderTerminalError formats a per-file failure.
func RenderTerminalError(source string, err error) string {
	return boxStyle.BorderForeground(colorError).Render(
		dimStyle.Render(source) + "\n" +
			lipgloss.NewStyle().Foreground(colorError).Render("Error: "+err.Error()),
	)
}
