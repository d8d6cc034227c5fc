package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/kectap/internal/engine/geo"
	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/engine/poller"
	"github.com/rendis/kectap/internal/model"
	"github.com/rendis/kectap/internal/tui/components"
	"github.com/rendis/kectap/internal/tui/styles"
)

// ProgressModel follows one job from submission to download. The
// controller lives behind a pointer, so it survives bubbletea's value
// copies and is shared with the app.
type ProgressModel struct {
	seq       int
	ctrl      *poller.Controller
	client    *jobs.Client
	params    model.ParameterSet
	outputDir string

	progress    progress.Model
	table       table.Model
	mapView     components.MapView
	view        poller.View
	preview     *model.Preview
	startTime   time.Time
	finished    bool
	confirmQuit bool

	downloading bool
	downloaded  string
	downloadErr error
	width       int
	height      int
}

// Messages
type progressTickMsg time.Time

type jobFinishedMsg struct {
	seq  int
	view poller.View
	err  error
}

type downloadDoneMsg struct {
	seq  int
	path string
	err  error
}

// NewProgressModel prepares the view for job number seq. The job starts in
// Init.
func NewProgressModel(seq int, ctrl *poller.Controller, client *jobs.Client, p model.ParameterSet, outputDir string) ProgressModel {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)
	return ProgressModel{
		seq:       seq,
		ctrl:      ctrl,
		client:    client,
		params:    p,
		outputDir: outputDir,
		progress:  bar,
		mapView:   components.NewMapView(30, 10),
		startTime: time.Now(),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.runJob(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

// runJob submits the job and blocks until its polling loop exits.
func (m ProgressModel) runJob() tea.Cmd {
	ctrl, p, seq := m.ctrl, m.params, m.seq
	return func() tea.Msg {
		if err := ctrl.Submit(context.Background(), p); err != nil {
			return jobFinishedMsg{seq: seq, view: ctrl.View(), err: err}
		}
		v, err := ctrl.Wait(context.Background())
		return jobFinishedMsg{seq: seq, view: v, err: err}
	}
}

func (m ProgressModel) download() tea.Cmd {
	client, h, dir, seq := m.client, *m.view.Handle, m.outputDir, m.seq
	return func() tea.Msg {
		path, err := client.Download(context.Background(), h, dir)
		return downloadDoneMsg{seq: seq, path: path, err: err}
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.ctrl.Stop()
			return m, tea.Quit
		case "esc":
			if m.finished {
				return m, func() tea.Msg { return NavigateToForm{} }
			}
			if m.confirmQuit {
				m.ctrl.Stop()
				return m, func() tea.Msg { return NavigateToForm{} }
			}
			m.confirmQuit = true
			return m, nil
		case "d":
			if m.view.CanDownload() && !m.downloading {
				m.downloading = true
				m.downloadErr = nil
				return m, m.download()
			}
		case "e":
			if m.downloaded != "" {
				path := m.downloaded
				return m, func() tea.Msg { return NavigateToExplorer{Path: path} }
			}
		case "r":
			if m.finished && m.view.State == poller.StateFailed {
				p := m.params
				return m, func() tea.Msg { return SubmitJobMsg{Params: p} }
			}
		}
		if m.confirmQuit {
			m.confirmQuit = false
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		m.mapView.SetSelected(m.table.Cursor())
		return m, cmd

	case progressTickMsg:
		if m.finished {
			return m, nil
		}
		m.apply(m.ctrl.View())
		return m, tickCmd()

	case jobFinishedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.finished = true
		m.confirmQuit = false
		m.apply(msg.view)
		return m, nil

	case downloadDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.downloading = false
		m.downloaded, m.downloadErr = msg.path, msg.err
		return m, nil
	}

	pModel, cmd := m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m *ProgressModel) apply(v poller.View) {
	m.view = v
	if v.Preview != nil && v.Preview != m.preview {
		m.preview = v.Preview
		pts := make([]orb.Point, 0, len(v.Preview.Rows))
		for _, row := range v.Preview.Rows {
			if p, ok := geo.PointFromRow(row); ok {
				pts = append(pts, p)
			}
		}
		m.mapView.SetPoints(pts)
		m.buildTable()
	}
}

func (m *ProgressModel) layout() {
	m.progress.Width = min(max(m.width-10, 20), 60)
	m.mapView.SetSize(min(max(m.width/4, 16), 40), min(max(m.height/3, 6), 14))
	if m.preview != nil {
		m.buildTable()
	}
}

func (m *ProgressModel) buildTable() {
	cols := m.params.Columns
	tableW := m.width - 4
	if m.mapView.Len() > 0 {
		tableW -= m.width/4 + 2
	}
	w := columnWidths(len(cols), tableW)

	columns := make([]table.Column, len(cols))
	for i, c := range cols {
		columns[i] = table.Column{Title: truncate(c, w), Width: w}
	}
	rows := make([]table.Row, len(m.preview.Rows))
	for i, r := range m.preview.Rows {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			row[j] = truncate(model.Cell(r, c), w)
		}
		rows[i] = row
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(max(m.height/3, 5), 15)),
	)
	t.SetStyles(tableStyles(true))
	m.table = t
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Job · %s · %d kecamatan", m.params.RegionName, len(m.params.Subdistricts()))))
	b.WriteString("\n")

	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(40).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(float64(m.view.Percent()) / 100))
	b.WriteString("\n")
	b.WriteString(styles.Hint.Render(m.view.StatusLine()))
	b.WriteString("\n\n")

	if m.preview != nil {
		b.WriteString(m.renderPreview())
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderOutcome())
	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	id := "-"
	if m.view.Handle != nil {
		id = m.view.Handle.ID
	}
	row("Job:", truncate(id, 26))
	row("State:", m.view.State.String())
	row("Server:", truncate(m.params.ServerBaseURL, 26))
	row("Columns:", fmt.Sprintf("%d", len(m.params.Columns)))
	row("Elapsed:", time.Since(m.startTime).Truncate(time.Second).String())
	return strings.TrimSuffix(sb.String(), "\n")
}

func (m ProgressModel) renderPreview() string {
	shown := len(m.preview.Rows)
	total := shown
	if m.preview.Total != nil {
		total = *m.preview.Total
	}

	var b strings.Builder
	b.WriteString(styles.Subtitle.Render("Preview"))
	b.WriteString(styles.Hint.Render(fmt.Sprintf(" showing %d of %d", shown, total)))
	b.WriteString("\n")

	if shown == 0 {
		b.WriteString(styles.Hint.Render("No rows"))
		return b.String()
	}
	if m.mapView.Len() == 0 {
		b.WriteString(m.table.View())
		return b.String()
	}
	mapBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Render(m.mapView.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.table.View(), " ", mapBox))
	return b.String()
}

func (m ProgressModel) renderOutcome() string {
	var b strings.Builder

	switch {
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the job and go back"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
		return b.String()

	case !m.finished:
		b.WriteString(styles.StatusBar.Render("esc stop • ctrl+c quit"))
		return b.String()

	case m.view.State == poller.StateSucceeded:
		b.WriteString(styles.SuccessText.Render("Export ready"))
		b.WriteString("\n")
		if url, ok := m.view.DownloadURL(); ok {
			b.WriteString(styles.Hint.Render(url))
			b.WriteString("\n")
		}

	case m.view.State == poller.StateFailed:
		b.WriteString(styles.ErrorText.Render("Error: " + m.view.ErrorText()))
		b.WriteString("\n")

	default:
		if m.view.Err != nil && !errors.Is(m.view.Err, poller.ErrStopped) {
			b.WriteString(styles.ErrorText.Render("Error: " + m.view.ErrorText()))
		} else {
			b.WriteString(styles.Hint.Render("Job stopped"))
		}
		b.WriteString("\n")
	}

	switch {
	case m.downloading:
		b.WriteString(styles.Hint.Render("Downloading..."))
		b.WriteString("\n")
	case m.downloadErr != nil:
		b.WriteString(styles.ErrorText.Render("Download failed: " + m.downloadErr.Error()))
		b.WriteString("\n")
	case m.downloaded != "":
		b.WriteString(styles.SuccessText.Render("Saved " + m.downloaded))
		b.WriteString("\n")
	}

	var keys []string
	if m.view.CanDownload() {
		keys = append(keys, "d download")
	}
	if m.downloaded != "" {
		keys = append(keys, "e explore")
	}
	if m.view.State == poller.StateFailed {
		keys = append(keys, "r retry")
	}
	if m.preview != nil && len(m.preview.Rows) > 0 {
		keys = append(keys, "↑↓ rows")
	}
	keys = append(keys, "esc back")
	b.WriteString(styles.StatusBar.Render(strings.Join(keys, " • ")))
	return b.String()
}

// NavigateToExplorer opens a workbook in the explorer.
type NavigateToExplorer struct {
	Path string
}
