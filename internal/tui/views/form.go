package views

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/kectap/internal/config"
	"github.com/rendis/kectap/internal/model"
	"github.com/rendis/kectap/internal/tui/styles"
)

// Field indices. Mode, columns and the excel toggles are virtual fields
// without a text input; kecamatan is the textarea.
const (
	fieldServer = iota
	fieldKecamatan
	fieldKeyword
	fieldRating
	fieldMode
	fieldCell
	fieldOverlap
	fieldDedupe
	fieldColumns
	fieldSheetPer
	fieldMetadata
	fieldAutoFit
	fieldFreeze
	fieldCount
)

const DefaultParamsFile = "kectap.yaml"

type FormModel struct {
	params    model.ParameterSet
	inputs    []textinput.Model
	kecamatan textarea.Model
	focused   int
	savePath  string
	err       string
	notice    string
}

func NewFormModel(p model.ParameterSet, savePath string) FormModel {
	if savePath == "" {
		savePath = DefaultParamsFile
	}
	inputs := make([]textinput.Model, fieldCount)
	inputs[fieldServer] = newInput(config.DefaultBackendURL, p.ServerBaseURL, 50)
	inputs[fieldKeyword] = newInput("optional, e.g. SD Negeri", p.Keyword, 40)
	inputs[fieldRating] = newInput("0", formatRating(p.MinRating), 6)
	inputs[fieldCell] = newInput(strconv.Itoa(model.DefaultCellSize), strconv.Itoa(p.Strategy.CellSizeMeters), 8)
	inputs[fieldOverlap] = newInput(strconv.Itoa(model.DefaultOverlapMeters), strconv.Itoa(p.Strategy.OverlapMeters), 8)
	inputs[fieldDedupe] = newInput(strconv.Itoa(model.DefaultDedupeMeters), strconv.Itoa(p.Strategy.DedupeRadiusMeters), 8)

	ta := textarea.New()
	ta.Placeholder = "Ungaran Barat\nBergas\nBawen"
	ta.ShowLineNumbers = false
	ta.SetWidth(50)
	ta.SetHeight(5)
	ta.SetValue(p.SubdistrictText)

	m := FormModel{
		params:    p,
		inputs:    inputs,
		kecamatan: ta,
		focused:   fieldServer,
		savePath:  savePath,
	}
	m.inputs[fieldServer].Focus()
	return m
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func formatRating(r float64) string {
	if r == 0 {
		return ""
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func isTextField(idx int) bool {
	switch idx {
	case fieldServer, fieldKeyword, fieldRating, fieldCell, fieldOverlap, fieldDedupe:
		return true
	}
	return false
}

// SetColumns replaces the selected columns, keeping their order.
func (m *FormModel) SetColumns(cols []string) {
	m.params.Columns = cols
	m.err = ""
}

func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		key := msg.String()
		switch key {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		case "tab":
			m.err = ""
			return m, m.focusNext()
		case "shift+tab":
			m.err = ""
			return m, m.focusPrev()
		case "ctrl+r":
			return m, m.submit()
		case "ctrl+s":
			m.save()
			return m, nil
		}

		if m.focused != fieldKecamatan {
			switch key {
			case "up":
				m.err = ""
				return m, m.focusPrev()
			case "down":
				m.err = ""
				return m, m.focusNext()
			case "enter":
				if m.focused == fieldColumns {
					selected := append([]string(nil), m.params.Columns...)
					return m, func() tea.Msg { return NavigateToColumns{Selected: selected} }
				}
				return m, m.submit()
			case "left", "right", " ":
				if m.toggle(key) {
					return m, nil
				}
			}
		}
	}

	var cmd tea.Cmd
	switch {
	case m.focused == fieldKecamatan:
		m.kecamatan, cmd = m.kecamatan.Update(msg)
	case isTextField(m.focused):
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}
	return m, cmd
}

// toggle handles left/right/space on a virtual field and reports whether
// the key was consumed.
func (m *FormModel) toggle(key string) bool {
	switch m.focused {
	case fieldMode:
		switch key {
		case "left":
			m.params.Strategy.Mode = model.ModeGrid
		case "right":
			m.params.Strategy.Mode = model.ModeCentroid
		default:
			if m.params.Strategy.Mode == model.ModeGrid {
				m.params.Strategy.Mode = model.ModeCentroid
			} else {
				m.params.Strategy.Mode = model.ModeGrid
			}
		}
		return true
	case fieldSheetPer, fieldMetadata, fieldAutoFit, fieldFreeze:
		if key != " " {
			return false
		}
		flag := m.exportFlag(m.focused)
		*flag = !*flag
		return true
	}
	return false
}

func (m *FormModel) exportFlag(idx int) *bool {
	switch idx {
	case fieldSheetPer:
		return &m.params.Export.SheetPerSubdistrict
	case fieldMetadata:
		return &m.params.Export.IncludeMetadataSheet
	case fieldAutoFit:
		return &m.params.Export.AutoFitColumns
	default:
		return &m.params.Export.FreezeHeaderRow
	}
}

func (m *FormModel) blur() {
	switch {
	case m.focused == fieldKecamatan:
		m.kecamatan.Blur()
	case isTextField(m.focused):
		m.inputs[m.focused].Blur()
	}
}

func (m *FormModel) focus() tea.Cmd {
	switch {
	case m.focused == fieldKecamatan:
		return m.kecamatan.Focus()
	case isTextField(m.focused):
		m.inputs[m.focused].Focus()
		return textinput.Blink
	}
	return nil
}

func (m *FormModel) focusNext() tea.Cmd {
	m.blur()
	m.focused = (m.focused + 1) % fieldCount
	if m.skipped(m.focused) {
		m.focused = (m.focused + 1) % fieldCount
	}
	return m.focus()
}

func (m *FormModel) focusPrev() tea.Cmd {
	m.blur()
	m.focused = (m.focused - 1 + fieldCount) % fieldCount
	if m.skipped(m.focused) {
		m.focused = (m.focused - 1 + fieldCount) % fieldCount
	}
	return m.focus()
}

// skipped hides the overlap field in centroid mode, where it has no effect.
func (m FormModel) skipped(idx int) bool {
	return idx == fieldOverlap && m.params.Strategy.Mode == model.ModeCentroid
}

// Params reads the form into a ParameterSet and validates it.
func (m FormModel) Params() (model.ParameterSet, error) {
	p := m.params
	p.ServerBaseURL = strings.TrimSpace(m.inputs[fieldServer].Value())
	p.SubdistrictText = m.kecamatan.Value()
	p.Keyword = strings.TrimSpace(m.inputs[fieldKeyword].Value())

	var problems []string
	if raw := strings.TrimSpace(m.inputs[fieldRating].Value()); raw == "" {
		p.MinRating = 0
	} else if r, err := strconv.ParseFloat(raw, 64); err != nil {
		problems = append(problems, "min rating must be a number between 0 and 5")
	} else {
		p.MinRating = model.ClampRating(r)
	}

	meters := []struct {
		idx  int
		name string
		dst  *int
		min  int
	}{
		{fieldCell, "grid size", &p.Strategy.CellSizeMeters, model.MinCellSize},
		{fieldOverlap, "overlap", &p.Strategy.OverlapMeters, 0},
		{fieldDedupe, "dedupe radius", &p.Strategy.DedupeRadiusMeters, 0},
	}
	for _, f := range meters {
		raw := strings.TrimSpace(m.inputs[f.idx].Value())
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			problems = append(problems, f.name+" must be a whole number of meters")
			continue
		}
		*f.dst = max(v, f.min)
	}

	if err := p.Validate(); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return p, &model.ValidationError{Problems: problems}
	}
	return p, nil
}

func (m *FormModel) submit() tea.Cmd {
	m.notice = ""
	p, err := m.Params()
	if err != nil {
		m.err = problemsText(err)
		return nil
	}
	m.err = ""
	return func() tea.Msg { return SubmitJobMsg{Params: p} }
}

func (m *FormModel) save() {
	p, err := m.Params()
	var verr *model.ValidationError
	if err != nil && !errors.As(err, &verr) {
		m.err = err.Error()
		return
	}
	if err := config.SaveParams(m.savePath, p); err != nil {
		m.err = err.Error()
		return
	}
	m.err = ""
	m.notice = "Saved parameters to " + m.savePath
}

func problemsText(err error) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return strings.Join(verr.Problems, "\n  ")
	}
	return err.Error()
}

func (m FormModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("New Job · "+m.params.RegionName) + "\n")

	b.WriteString(m.renderField("Server URL:", fieldServer))
	b.WriteString(m.renderLabel("Kecamatan:", fieldKecamatan) + "\n")
	b.WriteString(m.kecamatan.View() + "\n")
	n := len(model.NormalizeSubdistricts(m.kecamatan.Value()))
	b.WriteString(styles.Hint.Render(fmt.Sprintf("  one per line · %d listed", n)) + "\n")
	b.WriteString(m.renderField("Keyword:", fieldKeyword))
	b.WriteString(m.renderField("Min rating:", fieldRating))

	b.WriteString("\n")
	b.WriteString(m.renderMode())
	cellLabel := "Grid size (m):"
	if m.params.Strategy.Mode == model.ModeCentroid {
		cellLabel = "Radius (m):"
	}
	b.WriteString(m.renderField(cellLabel, fieldCell))
	if m.params.Strategy.Mode == model.ModeGrid {
		b.WriteString(m.renderField("Overlap (m):", fieldOverlap))
	}
	b.WriteString(m.renderField("Dedupe (m):", fieldDedupe))

	b.WriteString("\n")
	b.WriteString(m.renderColumns())
	b.WriteString(m.renderToggle("Sheet/kecamatan", fieldSheetPer))
	b.WriteString(m.renderToggle("Metadata sheet", fieldMetadata))
	b.WriteString(m.renderToggle("Auto-fit", fieldAutoFit))
	b.WriteString(m.renderToggle("Freeze header", fieldFreeze))

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.SuccessText.Render("  " + m.notice))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("ctrl+r start • tab next • space toggle • ctrl+s save • esc back"))

	return styles.Border.Render(b.String())
}

func (m FormModel) renderLabel(label string, idx int) string {
	if m.focused == idx {
		return styles.Label.Foreground(styles.Primary).Render(label)
	}
	return styles.Label.Render(label)
}

func (m FormModel) renderField(label string, idx int) string {
	return fmt.Sprintf("%s %s\n", m.renderLabel(label, idx), m.inputs[idx].View())
}

func (m FormModel) renderMode() string {
	active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(styles.Muted)

	var grid, centroid string
	if m.params.Strategy.Mode == model.ModeGrid {
		grid = active.Render("< Grid >")
		centroid = inactive.Render("Centroid")
	} else {
		grid = inactive.Render("Grid")
		centroid = active.Render("< Centroid >")
	}

	line := fmt.Sprintf("%s %s   %s", m.renderLabel("Strategy:", fieldMode), grid, centroid)
	if m.focused == fieldMode {
		line += lipgloss.NewStyle().Foreground(styles.Secondary).Render(" ←→")
	}
	return line + "\n"
}

func (m FormModel) renderColumns() string {
	cols := m.params.Columns
	summary := styles.ErrorText.Render("none selected")
	if len(cols) > 0 {
		shown := cols
		if len(shown) > 4 {
			shown = shown[:4]
		}
		text := fmt.Sprintf("%d selected: %s", len(cols), strings.Join(shown, ", "))
		if len(cols) > len(shown) {
			text += ", …"
		}
		summary = styles.Value.Render(text)
	}
	line := fmt.Sprintf("%s %s", m.renderLabel("Columns:", fieldColumns), summary)
	if m.focused == fieldColumns {
		line += lipgloss.NewStyle().Foreground(styles.Secondary).Render(" ⏎ edit")
	}
	return line + "\n"
}

func (m FormModel) renderToggle(label string, idx int) string {
	on := *m.exportFlag(idx)
	return fmt.Sprintf("%s %s\n", m.renderLabel(label+":", idx), styles.Check(on))
}

// Navigation messages
type NavigateToHome struct{}

// NavigateToColumns opens the column picker with the current selection.
type NavigateToColumns struct {
	Selected []string
}

// SubmitJobMsg asks the app to start a job with validated parameters.
type SubmitJobMsg struct {
	Params model.ParameterSet
}
