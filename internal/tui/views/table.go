package views

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/tui/styles"
)

func tableStyles(focused bool) table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true)
	if !focused {
		s.Header = s.Header.Foreground(styles.Muted)
		s.Selected = s.Selected.
			Foreground(styles.Text).
			Background(lipgloss.Color("#333333")).
			Bold(false)
		return s
	}
	s.Header = s.Header.Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(styles.Highlight).
		Background(styles.Primary).
		Bold(true)
	return s
}

// columnWidths splits width evenly across n columns within [8, 32].
func columnWidths(n, width int) int {
	if n == 0 {
		return 0
	}
	return min(max((width-2*n)/n, 8), 32)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
