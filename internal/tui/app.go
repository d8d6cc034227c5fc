package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/config"
	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/engine/poller"
	"github.com/rendis/kectap/internal/model"
	"github.com/rendis/kectap/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewForm
	viewColumns
	viewProgress
	viewExplorer
	viewFilePicker
	viewRecent
)

// App is the root bubbletea model. The controller and client are shared by
// pointer across value copies.
type App struct {
	currentView viewID
	width       int
	height      int

	cfg        *config.Config
	client     *jobs.Client
	ctrl       *poller.Controller
	recents    RecentStore
	logger     *slog.Logger
	params     model.ParameterSet
	paramsPath string
	jobSeq     int

	home       views.HomeModel
	form       views.FormModel
	columns    views.ColumnsModel
	progress   views.ProgressModel
	explorer   views.ExplorerModel
	filePicker views.FilePickerModel
	recent     views.RecentModel
}

func NewApp(cfg *config.Config, client *jobs.Client, ctrl *poller.Controller, recents RecentStore, logger *slog.Logger) App {
	p := model.DefaultParameterSet(cfg.Backend.URL)
	return App{
		currentView: viewHome,
		cfg:         cfg,
		client:      client,
		ctrl:        ctrl,
		recents:     recents,
		logger:      logger,
		params:      p,
		home:        views.NewHomeModel(cfg.Backend.URL),
		form:        views.NewFormModel(p, ""),
	}
}

// WithParams preloads the form, e.g. from a -params flag.
func (a App) WithParams(p model.ParameterSet, path string) App {
	a.params = p
	a.paramsPath = path
	a.form = views.NewFormModel(p, path)
	a.currentView = viewForm
	return a
}

func (a App) Init() tea.Cmd {
	if a.currentView == viewForm {
		return a.form.Init()
	}
	return a.home.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && a.currentView != viewProgress {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.NavigateToHome:
		a.currentView = viewHome
		return a, nil
	case views.NavigateToNewJob:
		a.currentView = viewForm
		a.form = views.NewFormModel(a.params, a.paramsPath)
		return a, a.form.Init()
	case views.NavigateToForm:
		a.currentView = viewForm
		return a, a.form.Init()
	case views.NavigateToColumns:
		a.currentView = viewColumns
		a.columns = views.NewColumnsModel(msg.Selected)
		return a, a.columns.Init()
	case views.ColumnsChosenMsg:
		a.currentView = viewForm
		a.form.SetColumns(msg.Columns)
		return a, a.form.Init()
	case views.SubmitJobMsg:
		a.params = msg.Params
		a.jobSeq++
		a.currentView = viewProgress
		a.progress = views.NewProgressModel(a.jobSeq, a.ctrl, a.client, msg.Params, a.cfg.OutputDir)
		a.logger.Info("tui.job.submit", "seq", a.jobSeq, "kecamatan", len(msg.Params.Subdistricts()))
		return a, tea.Batch(a.progress.Init(), a.sizeCmd())
	case views.NavigateToLoad:
		a.currentView = viewFilePicker
		a.filePicker = views.NewFilePickerModel(msg.Kind, "")
		return a, a.filePicker.Init()
	case views.ParamsChosenMsg:
		p, err := config.LoadParams(msg.Path, a.cfg.Backend.URL)
		if err != nil {
			a.logger.Warn("tui.params.load_failed", "path", msg.Path, "error", err)
			a.filePicker.SetError(err)
			return a, nil
		}
		a = a.WithParams(p, msg.Path)
		return a, a.form.Init()
	case views.NavigateToExplorer:
		a.currentView = viewExplorer
		a.explorer = views.NewExplorerModel(msg.Path)
		return a, tea.Batch(a.explorer.Init(), a.sizeCmd())
	case views.WorkbookOpenedMsg:
		if err := a.recents.Add(msg.Path, msg.Rows); err != nil {
			a.logger.Warn("tui.recent.save_failed", "error", err)
		}
		return a, nil
	case views.NavigateToRecent:
		a.currentView = viewRecent
		var entries []views.RecentEntry
		for _, e := range a.recents.Load() {
			entries = append(entries, views.RecentEntry{
				Path:     e.Path,
				Rows:     e.Rows,
				OpenedAt: e.OpenedAt,
			})
		}
		a.recent = views.NewRecentModel(entries)
		return a, a.recent.Init()
	}

	var cmd tea.Cmd
	var m tea.Model
	switch a.currentView {
	case viewHome:
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewForm:
		m, cmd = a.form.Update(msg)
		a.form = m.(views.FormModel)
	case viewColumns:
		m, cmd = a.columns.Update(msg)
		a.columns = m.(views.ColumnsModel)
	case viewProgress:
		m, cmd = a.progress.Update(msg)
		a.progress = m.(views.ProgressModel)
	case viewExplorer:
		m, cmd = a.explorer.Update(msg)
		a.explorer = m.(views.ExplorerModel)
	case viewFilePicker:
		m, cmd = a.filePicker.Update(msg)
		a.filePicker = m.(views.FilePickerModel)
	case viewRecent:
		m, cmd = a.recent.Update(msg)
		a.recent = m.(views.RecentModel)
	}

	return a, cmd
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewForm:
		content = a.form.View()
	case viewColumns:
		content = a.columns.View()
	case viewProgress:
		content = a.progress.View()
	case viewExplorer:
		content = a.explorer.View()
	case viewFilePicker:
		content = a.filePicker.View()
	case viewRecent:
		content = a.recent.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly created views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the TUI. A non-nil params preloads the form.
func Run(cfg *config.Config, logger *slog.Logger, params *model.ParameterSet, paramsPath string) error {
	client := jobs.NewClient(cfg.Backend.HTTPTimeout, jobs.WithLogger(logger))
	ctrl := poller.New(client, poller.Options{
		Interval:     cfg.Backend.PollInterval,
		PreviewLimit: cfg.Backend.PreviewLimit,
		Logger:       logger,
	})
	defer ctrl.Close()

	app := NewApp(cfg, client, ctrl, DefaultRecentStore(), logger)
	if params != nil {
		app = app.WithParams(*params, paramsPath)
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
