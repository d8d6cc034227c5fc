package views

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/kectap/internal/model"
	"github.com/rendis/kectap/internal/tui/styles"
)

// presetKeys binds number keys to column presets.
var presetKeys = []struct {
	key  string
	name string
}{
	{"1", "minimal"},
	{"2", "places-basic"},
	{"3", "all"},
	{"0", "none"},
}

const columnsWindow = 16

// ColumnsModel is the grouped column picker.
type ColumnsModel struct {
	selected  []string
	visible   []model.Column
	filter    textinput.Model
	filtering bool
	cursor    int
}

func NewColumnsModel(selected []string) ColumnsModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 40

	m := ColumnsModel{
		selected: append([]string(nil), selected...),
		filter:   filter,
	}
	m.applyFilter()
	return m
}

// Selected returns the chosen columns in selection order.
func (m ColumnsModel) Selected() []string {
	return m.selected
}

func (m ColumnsModel) Init() tea.Cmd {
	return nil
}

func (m ColumnsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.filtering {
		switch key.String() {
		case "esc", "enter", "tab":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.cursor < len(m.visible) {
			m.selected = model.ToggleColumn(m.selected, m.visible[m.cursor].Value)
		}
	case "/", "tab":
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink
	case "enter":
		cols := append([]string(nil), m.selected...)
		return m, func() tea.Msg { return ColumnsChosenMsg{Columns: cols} }
	case "esc", "q":
		return m, func() tea.Msg { return NavigateToForm{} }
	default:
		for _, p := range presetKeys {
			if key.String() == p.key {
				m.selected = model.Presets[p.name]()
			}
		}
	}
	return m, nil
}

// normalize removes diacritics and lowercases text for fuzzy matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

// matchesAll reports whether every word of query occurs in one of fields.
func matchesAll(query string, fields ...string) bool {
	words := strings.Fields(normalize(query))
	haystack := normalize(strings.Join(fields, " "))
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

func (m *ColumnsModel) applyFilter() {
	raw := strings.TrimSpace(m.filter.Value())
	m.visible = nil
	for _, c := range model.Catalog {
		if raw == "" || matchesAll(raw, c.Value, c.Label, c.Group) {
			m.visible = append(m.visible, c)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m ColumnsModel) position(v string) int {
	for i, s := range m.selected {
		if s == v {
			return i + 1
		}
	}
	return 0
}

func (m ColumnsModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Columns: %d of %d selected", len(m.selected), len(model.Catalog))))
	b.WriteString("\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.filtering {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString(styles.Hint.Render("No column matches the filter"))
		b.WriteString("\n")
	}

	start := 0
	if m.cursor > columnsWindow-3 {
		start = m.cursor - (columnsWindow - 3)
	}
	end := min(start+columnsWindow, len(m.visible))

	group := ""
	for i := start; i < end; i++ {
		c := m.visible[i]
		if c.Group != group {
			group = c.Group
			b.WriteString(styles.Subtitle.Render(group) + "\n")
		}

		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		pos := m.position(c.Value)
		order := "   "
		if pos > 0 {
			order = fmt.Sprintf("%2d.", pos)
		}
		line := fmt.Sprintf("%s%s %s %s", cursor, styles.Check(pos > 0), styles.Hint.Render(order), style.Render(c.Label))
		if c.Label != c.Value {
			line += styles.Hint.Render(" (" + c.Value + ")")
		}
		if c.Hint != "" && i == m.cursor {
			line += lipgloss.NewStyle().Foreground(styles.Warning).Render(" · " + c.Hint)
		}
		b.WriteString(line + "\n")
	}

	var presets []string
	for _, p := range presetKeys {
		presets = append(presets, p.key+" "+p.name)
	}
	b.WriteString("\n")
	b.WriteString(styles.Hint.Render("presets: " + strings.Join(presets, " • ")))
	b.WriteString("\n")

	status := "↑↓ navigate • space toggle • / filter • enter done • esc cancel"
	if m.filtering {
		status = "type to filter • esc back"
	}
	b.WriteString(styles.StatusBar.Render(status))

	return styles.Border.Render(b.String())
}

// ColumnsChosenMsg carries the confirmed column selection back to the form.
type ColumnsChosenMsg struct {
	Columns []string
}

// NavigateToForm returns to the form without changes.
type NavigateToForm struct{}
