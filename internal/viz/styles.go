package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title    lipgloss.Style
	panel    lipgloss.Style
	subtle   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	keyHint  lipgloss.Style
	stderr   lipgloss.Style
	running  lipgloss.Style
	stopped  lipgloss.Style
	finished lipgloss.Style
	failed   lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		subtle:   lipgloss.NewStyle().Foreground(t.Muted),
		label:    lipgloss.NewStyle().Foreground(t.Muted),
		value:    lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		keyHint:  lipgloss.NewStyle().Italic(true).Foreground(t.Muted),
		stderr:   lipgloss.NewStyle().Foreground(t.Warning),
		running:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		stopped:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		finished: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		failed:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// separator draws a muted rule with a center mark.
func (s styles) separator(width int) string {
	if width < 8 {
		width = 8
	}
	mid := width / 2
	return s.subtle.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
