package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/kectap/internal/engine/geo"
	"github.com/rendis/kectap/internal/engine/storage"
	"github.com/rendis/kectap/internal/engine/workbook"
	"github.com/rendis/kectap/internal/tui/components"
	"github.com/rendis/kectap/internal/tui/styles"
)

type focusArea int

const (
	focusTable focusArea = iota
	focusFilter
	focusCard
	focusMap
)

// ExplorerModel browses a downloaded workbook: one table per sheet, a
// detail card for the selected row and a map of the rows with coordinates.
type ExplorerModel struct {
	path     string
	wb       *workbook.Workbook
	sheet    int
	records  []map[string]any
	filtered []int // indexes into records
	points   []orb.Point
	pointIdx []int // filtered position to points index, -1 without coordinates
	table    table.Model
	filter   textinput.Model
	mapView  components.MapView
	focus    focusArea
	selected int
	width    int
	height   int
	err      error
	notice   string

	cardScrollY int
	cardLines   []string
}

type workbookLoadedMsg struct {
	wb  *workbook.Workbook
	err error
}

func NewExplorerModel(path string) ExplorerModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	return ExplorerModel{
		path:     path,
		filter:   filter,
		mapView:  components.NewMapView(40, 12),
		selected: -1,
	}
}

func (m ExplorerModel) Init() tea.Cmd {
	path := m.path
	return func() tea.Msg {
		wb, err := workbook.Open(path)
		return workbookLoadedMsg{wb: wb, err: err}
	}
}

func (m ExplorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case workbookLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.wb = msg.wb
		m.loadSheet(0)
		opened := WorkbookOpenedMsg{Path: m.path, Rows: m.wb.RowCount()}
		return m, func() tea.Msg { return opened }

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if m.err != nil || m.wb == nil {
			if key == "esc" || key == "q" {
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			return m, nil
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "[", "left":
				if m.sheet > 0 {
					m.loadSheet(m.sheet - 1)
				}
				return m, nil
			case "]", "right":
				if m.sheet < len(m.wb.Sheets)-1 {
					m.loadSheet(m.sheet + 1)
				}
				return m, nil
			case "1":
				m.focus = focusCard
				m.table.SetStyles(tableStyles(false))
				return m, nil
			case "2":
				m.focus = focusMap
				m.table.SetStyles(tableStyles(false))
				return m, nil
			case "s":
				m.saveSQLite()
				return m, nil
			case "c":
				m.writeChart()
				return m, nil
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusCard:
			maxScroll := max(len(m.cardLines)-m.panelHeight(), 0)
			switch key {
			case "esc":
				m.focusTable()
			case "up", "k":
				if m.cardScrollY > 0 {
					m.cardScrollY--
				}
			case "down", "j":
				if m.cardScrollY < maxScroll {
					m.cardScrollY++
				}
			}
			return m, nil

		case focusMap:
			switch key {
			case "esc":
				m.focusTable()
			case "+", "=":
				m.mapView.ZoomIn()
			case "-":
				m.mapView.ZoomOut()
			case "0":
				m.mapView.ZoomReset()
			case "up", "k":
				m.mapView.Pan(1, 0)
			case "down", "j":
				m.mapView.Pan(-1, 0)
			case "left", "h":
				m.mapView.Pan(0, -1)
			case "right", "l":
				m.mapView.Pan(0, 1)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		if cursor := m.table.Cursor(); cursor != m.selected && cursor < len(m.filtered) {
			m.selected = cursor
			m.cardScrollY = 0
			m.cacheCard()
			m.selectOnMap()
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}
	return m, cmd
}

func (m *ExplorerModel) focusTable() {
	m.focus = focusTable
	m.table.SetStyles(tableStyles(true))
}

func (m ExplorerModel) current() workbook.Sheet {
	return m.wb.Sheets[m.sheet]
}

func (m *ExplorerModel) loadSheet(idx int) {
	m.sheet = idx
	m.notice = ""
	if len(m.wb.Sheets) == 0 {
		m.records = nil
	} else {
		m.records = m.current().Records()
	}
	m.applyFilter()
}

func (m *ExplorerModel) applyFilter() {
	raw := strings.TrimSpace(m.filter.Value())
	m.filtered = nil
	for i, r := range m.records {
		if raw == "" || matchesAll(raw, recordText(r)...) {
			m.filtered = append(m.filtered, i)
		}
	}

	m.points = nil
	m.pointIdx = make([]int, len(m.filtered))
	for j, i := range m.filtered {
		m.pointIdx[j] = -1
		if p, ok := geo.PointFromRow(m.records[i]); ok {
			m.pointIdx[j] = len(m.points)
			m.points = append(m.points, p)
		}
	}
	m.mapView.SetPoints(m.points)

	m.buildTable()
	m.selected = -1
	if len(m.filtered) > 0 {
		m.selected = 0
	}
	m.selectOnMap()
	m.cardScrollY = 0
	m.cacheCard()
}

// selectOnMap highlights the selected row if it has coordinates.
func (m *ExplorerModel) selectOnMap() {
	if m.selected < 0 || m.selected >= len(m.pointIdx) {
		m.mapView.SetSelected(-1)
		return
	}
	m.mapView.SetSelected(m.pointIdx[m.selected])
}

func recordText(r map[string]any) []string {
	out := make([]string, 0, len(r))
	for _, v := range r {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func (m *ExplorerModel) cacheCard() {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		m.cardLines = nil
		return
	}
	sheet := m.current()
	row := sheet.Rows[m.filtered[m.selected]]

	w := 0
	for _, h := range sheet.Header {
		w = max(w, len(h))
	}
	lines := make([]string, 0, len(sheet.Header))
	for i, h := range sheet.Header {
		if i < len(row) && row[i] != "" {
			lines = append(lines, fmt.Sprintf("%-*s  %s", w, h, row[i]))
		}
	}
	m.cardLines = lines
}

func (m *ExplorerModel) buildTable() {
	if m.wb == nil || len(m.wb.Sheets) == 0 {
		return
	}
	sheet := m.current()
	w := columnWidths(len(sheet.Header), m.width-4)

	columns := make([]table.Column, len(sheet.Header))
	for i, h := range sheet.Header {
		columns[i] = table.Column{Title: truncate(h, w), Width: w}
	}
	rows := make([]table.Row, len(m.filtered))
	for i, idx := range m.filtered {
		src := sheet.Rows[idx]
		row := make(table.Row, len(sheet.Header))
		for j := range sheet.Header {
			if j < len(src) {
				row[j] = truncate(src[j], w)
			}
		}
		rows[i] = row
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height/2-6, 5)),
	)
	t.SetStyles(tableStyles(m.focus != focusCard && m.focus != focusMap))
	m.table = t
}

func (m ExplorerModel) panelHeight() int {
	return max(m.height/2-8, 6)
}

func (m *ExplorerModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	mapW := max((m.width-6)/2-4, 20)
	m.mapView.SetSize(mapW, m.panelHeight())
	m.buildTable()
}

// saveSQLite imports the current sheet into <workbook>.db next to the file.
func (m *ExplorerModel) saveSQLite() {
	dbPath := strings.TrimSuffix(m.path, filepath.Ext(m.path)) + ".db"
	store, err := storage.NewStore(dbPath)
	if err != nil {
		m.notice = fmt.Sprintf("Save error: %v", err)
		return
	}
	defer store.Close()

	sheet := m.current()
	jobID := m.wb.Metadata["jobId"]
	if jobID == "" {
		jobID = filepath.Base(m.path)
	}
	n, err := store.InsertSheet(jobID, sheet.Name, sheet.Header, sheet.Rows)
	if err != nil {
		m.notice = fmt.Sprintf("Save error: %v", err)
		return
	}
	m.notice = fmt.Sprintf("Saved %d rows of %s to %s", n, sheet.Name, dbPath)
}

// writeChart renders the filtered rows as an HTML map next to the file.
func (m *ExplorerModel) writeChart() {
	var places []geo.Place
	for _, i := range m.filtered {
		r := m.records[i]
		if p, ok := geo.PointFromRow(r); ok {
			places = append(places, geo.Place{Name: fmt.Sprint(r["name"]), Point: p})
		}
	}
	if len(places) == 0 {
		m.notice = "No rows with latitude and longitude to chart"
		return
	}

	htmlPath := strings.TrimSuffix(m.path, filepath.Ext(m.path)) + ".html"
	f, err := os.Create(htmlPath)
	if err != nil {
		m.notice = fmt.Sprintf("Chart error: %v", err)
		return
	}
	defer f.Close()
	if err := geo.WriteChart(f, m.current().Name, places); err != nil {
		m.notice = fmt.Sprintf("Chart error: %v", err)
		return
	}
	m.notice = fmt.Sprintf("Wrote map of %d places to %s", len(places), htmlPath)
}

func (m ExplorerModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error opening workbook: %v", m.err))
	}
	if m.wb == nil {
		return styles.Hint.Render("Loading " + m.path + "...")
	}
	if len(m.wb.Sheets) == 0 {
		return styles.Hint.Render("The workbook has no result sheets")
	}

	var b strings.Builder
	sheet := m.current()

	b.WriteString(styles.Title.Render(fmt.Sprintf("%s: %d rows", filepath.Base(m.path), m.wb.RowCount())))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	if len(m.filtered) != len(sheet.Rows) {
		b.WriteString(styles.Hint.Render(fmt.Sprintf(" (showing %d of %d)", len(m.filtered), len(sheet.Rows))))
	}
	b.WriteString("\n\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	panelH := m.panelHeight()
	panelW := max((m.width-6)/2, 30)
	cardBox := m.renderPanel("[1] Details", m.focus == focusCard, panelW, panelH, m.viewCard(panelW-4, panelH))
	mapBox := m.renderPanel("[2] Map", m.focus == focusMap, panelW, panelH, m.mapView.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cardBox, " ", mapBox))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.notice))
		b.WriteString("\n")
	}

	var status string
	switch m.focus {
	case focusTable:
		status = "↑↓ rows • ←→ sheet • / filter • 1 details • 2 map • s save sqlite • c chart • esc back"
	case focusFilter:
		status = "type to filter • esc back"
	case focusCard:
		status = "↑↓ scroll • esc back to table"
	case focusMap:
		status = "+/- zoom • 0 reset • ↑↓←→ pan • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(status))

	return b.String()
}

func (m ExplorerModel) renderTabs() string {
	tabs := make([]string, len(m.wb.Sheets))
	for i, s := range m.wb.Sheets {
		label := fmt.Sprintf(" %s (%d) ", s.Name, len(s.Rows))
		if i == m.sheet {
			tabs[i] = lipgloss.NewStyle().Foreground(styles.Highlight).Background(styles.Primary).Bold(true).Render(label)
		} else {
			tabs[i] = styles.InactiveItem.Render(label)
		}
	}
	return strings.Join(tabs, " ")
}

func (m ExplorerModel) renderPanel(title string, focused bool, w, h int, content string) string {
	color := styles.Muted
	if focused {
		color = styles.Primary
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(w - 2).
		Height(h).
		Render(content)
	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(title)
	return label + "\n" + box
}

func (m ExplorerModel) viewCard(w, h int) string {
	if len(m.cardLines) == 0 {
		return styles.Hint.Render("Select a row\nto view details")
	}

	scrollY := min(m.cardScrollY, max(len(m.cardLines)-h, 0))
	end := min(scrollY+h, len(m.cardLines))

	var sb strings.Builder
	for i, line := range m.cardLines[scrollY:end] {
		style := lipgloss.NewStyle().Foreground(styles.Text)
		if scrollY+i == 0 {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(truncate(line, w)))
		if scrollY+i < end-1 {
			sb.WriteString("\n")
		}
	}
	if scrollY > 0 {
		sb.WriteString("\n" + styles.Hint.Render("  ▲ more above"))
	}
	if end < len(m.cardLines) {
		sb.WriteString("\n" + styles.Hint.Render("  ▼ more below"))
	}
	return sb.String()
}

// WorkbookOpenedMsg reports a workbook that loaded successfully.
type WorkbookOpenedMsg struct {
	Path string
	Rows int
}
