package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/tui/styles"
)

// PickKind selects what the file picker lists and what it opens.
type PickKind int

const (
	PickParams PickKind = iota
	PickWorkbook
)

func (k PickKind) extensions() []string {
	if k == PickParams {
		return []string{".yaml", ".yml"}
	}
	return []string{".xlsx"}
}

func (k PickKind) title() string {
	if k == PickParams {
		return "Open Parameters"
	}
	return "Open Workbook"
}

type FilePickerModel struct {
	kind   PickKind
	dir    string
	files  []os.DirEntry
	cursor int
	err    error
}

func NewFilePickerModel(kind PickKind, dir string) FilePickerModel {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	m := FilePickerModel{kind: kind, dir: dir}
	m.loadDir()
	return m
}

// SetError shows err, e.g. when the chosen file could not be used.
func (m *FilePickerModel) SetError(err error) {
	m.err = err
}

func (m FilePickerModel) matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range m.kind.extensions() {
		if ext == e {
			return true
		}
	}
	return false
}

func (m *FilePickerModel) loadDir() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}

	m.err = nil
	m.files = nil
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if e.IsDir() || m.matches(name) {
			m.files = append(m.files, e)
		}
	}
	m.cursor = 0
}

func (m FilePickerModel) Init() tea.Cmd {
	return nil
}

func (m FilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.files)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.files) {
				entry := m.files[m.cursor]
				fullPath := filepath.Join(m.dir, entry.Name())
				if entry.IsDir() {
					m.dir = fullPath
					m.loadDir()
					return m, nil
				}
				if m.kind == PickParams {
					return m, func() tea.Msg { return ParamsChosenMsg{Path: fullPath} }
				}
				return m, func() tea.Msg { return NavigateToExplorer{Path: fullPath} }
			}
		case "backspace":
			parent := filepath.Dir(m.dir)
			if parent != m.dir {
				m.dir = parent
				m.loadDir()
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m FilePickerModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(m.kind.title()))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(m.dir))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	if len(m.files) == 0 {
		b.WriteString(styles.Hint.Render(fmt.Sprintf("No %s files or directories found",
			strings.Join(m.kind.extensions(), "/"))))
		b.WriteString("\n")
	}

	// Show max 15 items
	start := 0
	if m.cursor > 12 {
		start = m.cursor - 12
	}
	end := min(start+15, len(m.files))

	for i := start; i < end; i++ {
		entry := m.files[i]
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		icon := "📄 "
		switch {
		case entry.IsDir():
			icon = "📁 "
		case m.kind == PickWorkbook:
			icon = "📊 "
		}

		b.WriteString(fmt.Sprintf("%s%s%s\n", cursor, icon, style.Render(entry.Name())))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter open • backspace parent dir • esc back"))

	return styles.Border.Render(b.String())
}

// ParamsChosenMsg asks the app to load a parameter file into the form.
type ParamsChosenMsg struct {
	Path string
}
