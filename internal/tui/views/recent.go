package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/tui/styles"
)

type RecentEntry struct {
	Path     string
	Rows     int
	OpenedAt time.Time
}

type RecentModel struct {
	entries []RecentEntry
	cursor  int
}

func NewRecentModel(entries []RecentEntry) RecentModel {
	return RecentModel{entries: entries}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(m.entries) {
			path := m.entries[m.cursor].Path
			return m, func() tea.Msg { return NavigateToExplorer{Path: path} }
		}
	case "esc", "q":
		return m, func() tea.Msg { return NavigateToHome{} }
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recent Workbooks"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(styles.Hint.Render("No recent workbooks"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		name := style.Render(filepath.Base(entry.Path))
		if _, err := os.Stat(entry.Path); os.IsNotExist(err) {
			name = lipgloss.NewStyle().Foreground(styles.Error).Strikethrough(true).Render(filepath.Base(entry.Path))
		}

		detail := fmt.Sprintf("  %s  %s", filepath.Dir(entry.Path), timeAgo(entry.OpenedAt))
		if entry.Rows > 0 {
			detail += fmt.Sprintf("  %d rows", entry.Rows)
		}
		b.WriteString(fmt.Sprintf("%s%s\n%s\n", cursor, name, styles.Hint.Render(detail)))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • esc back"))

	return styles.Border.Render(b.String())
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// NavigateToRecent opens the recent workbooks list.
type NavigateToRecent struct{}
