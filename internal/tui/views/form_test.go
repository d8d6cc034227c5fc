package views

import (
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/kectap/internal/config"
	"github.com/rendis/kectap/internal/model"
)

func press(t *testing.T, m FormModel, keys ...tea.KeyMsg) (FormModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(FormModel)
	}
	return m, cmd
}

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keySpace = tea.KeyMsg{Type: tea.KeySpace}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func validForm() FormModel {
	p := model.DefaultParameterSet("http://backend")
	p.SubdistrictText = "Bergas\n\n  Bawen \n"
	return NewFormModel(p, "")
}

func TestFormParamsValid(t *testing.T) {
	m := validForm()
	m.inputs[fieldKeyword].SetValue("  SMA ")
	m.inputs[fieldRating].SetValue("7.5")
	m.inputs[fieldCell].SetValue("50")

	p, err := m.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bergas", "Bawen"}, p.Subdistricts())
	assert.Equal(t, "SMA", p.Keyword)
	assert.Equal(t, model.MaxRating, p.MinRating)
	assert.Equal(t, model.MinCellSize, p.Strategy.CellSizeMeters)
	assert.Equal(t, model.DefaultColumns(), p.Columns)
}

func TestFormParamsCollectsAllProblems(t *testing.T) {
	m := NewFormModel(model.DefaultParameterSet(""), "")
	m.inputs[fieldRating].SetValue("abc")
	m.inputs[fieldDedupe].SetValue("-3")
	m.SetColumns(nil)

	_, err := m.Params()
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"min rating must be a number between 0 and 5",
		"dedupe radius must be a whole number of meters",
		"server URL is required",
		"at least one kecamatan is required",
		"select at least one output column",
	}, verr.Problems)
}

func TestFormSubmit(t *testing.T) {
	m, cmd := press(t, validForm(), tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	msg, ok := cmd().(SubmitJobMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"Bergas", "Bawen"}, msg.Params.Subdistricts())
	assert.Empty(t, m.err)
}

func TestFormSubmitInvalidShowsError(t *testing.T) {
	m, cmd := press(t, NewFormModel(model.DefaultParameterSet("http://b"), ""), tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Nil(t, cmd)
	assert.Contains(t, m.err, "at least one kecamatan is required")
	assert.Contains(t, m.View(), "at least one kecamatan is required")
}

func TestFormFocusSkipsOverlapInCentroidMode(t *testing.T) {
	m := validForm()
	m, _ = press(t, m, keyTab, keyTab, keyTab, keyTab)
	require.Equal(t, fieldMode, m.focused)

	m, _ = press(t, m, keySpace)
	assert.Equal(t, model.ModeCentroid, m.params.Strategy.Mode)

	m, _ = press(t, m, keyTab, keyTab)
	assert.Equal(t, fieldDedupe, m.focused)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldCell, m.focused)
}

func TestFormModeArrows(t *testing.T) {
	m := validForm()
	m.focused = fieldMode
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, model.ModeCentroid, m.params.Strategy.Mode)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, model.ModeGrid, m.params.Strategy.Mode)
}

func TestFormExportToggles(t *testing.T) {
	m := validForm()
	m.focused = fieldFreeze
	m, _ = press(t, m, keySpace)
	assert.False(t, m.params.Export.FreezeHeaderRow)
	m, _ = press(t, m, keySpace)
	assert.True(t, m.params.Export.FreezeHeaderRow)
}

func TestFormOpensColumnPicker(t *testing.T) {
	m := validForm()
	m.focused = fieldColumns
	_, cmd := press(t, m, keyEnter)
	require.NotNil(t, cmd)
	msg, ok := cmd().(NavigateToColumns)
	require.True(t, ok)
	assert.Equal(t, model.DefaultColumns(), msg.Selected)
}

func TestFormEscGoesHome(t *testing.T) {
	_, cmd := press(t, validForm(), keyEsc)
	require.NotNil(t, cmd)
	assert.IsType(t, NavigateToHome{}, cmd())
}

func TestFormSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	p := model.DefaultParameterSet("http://backend")
	p.SubdistrictText = "Bergas"
	m := NewFormModel(p, path)
	m.inputs[fieldKeyword].SetValue("SMP")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Empty(t, m.err)
	assert.Contains(t, m.notice, path)

	loaded, err := config.LoadParams(path, "http://other")
	require.NoError(t, err)
	assert.Equal(t, "http://backend", loaded.ServerBaseURL)
	assert.Equal(t, []string{"Bergas"}, loaded.Subdistricts())
	assert.Equal(t, "SMP", loaded.Keyword)
}
