package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/tui/styles"
)

// Version is set by the binary at startup.
var Version = "dev"

type menuItem struct {
	key   string
	label string
	desc  string
	msg   func() tea.Msg
}

type HomeModel struct {
	items   []menuItem
	cursor  int
	backend string
}

func NewHomeModel(backend string) HomeModel {
	return HomeModel{
		backend: backend,
		items: []menuItem{
			{key: "n", label: "New Job", desc: "Scrape schools per kecamatan",
				msg: func() tea.Msg { return NavigateToNewJob{} }},
			{key: "p", label: "Open Parameters", desc: "Load a saved .yaml parameter file",
				msg: func() tea.Msg { return NavigateToLoad{Kind: PickParams} }},
			{key: "o", label: "Open Workbook", desc: "Explore a downloaded .xlsx export",
				msg: func() tea.Msg { return NavigateToLoad{Kind: PickWorkbook} }},
			{key: "r", label: "Recent Workbooks", desc: "Reopen a recent export",
				msg: func() tea.Msg { return NavigateToRecent{} }},
			{key: "q", label: "Quit", desc: "Exit kectap", msg: tea.Quit},
		},
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		return m, m.items[m.cursor].msg
	default:
		for i, item := range m.items {
			if key.String() == item.key {
				m.cursor = i
				return m, item.msg
			}
		}
	}
	return m, nil
}

func (m HomeModel) View() string {
	var b strings.Builder

	logo := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render("  kectap")

	version := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Render(" " + Version)

	tagline := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Italic(true).
		Render("  School places per kecamatan, exported to Excel")

	b.WriteString(logo + version + "\n")
	b.WriteString(tagline + "\n")
	b.WriteString(styles.Hint.Render("  backend "+m.backend) + "\n\n")

	for i, item := range m.items {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		key := lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Bold(true).
			Render(fmt.Sprintf("[%s]", item.key))

		desc := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Render(" - " + item.desc)

		b.WriteString(fmt.Sprintf("%s%s %s%s\n", cursor, key, style.Render(item.label), desc))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))

	return styles.Border.Render(b.String())
}

// Navigation messages
type NavigateToNewJob struct{}

type NavigateToLoad struct {
	Kind PickKind
}
