package views

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/kectap/internal/model"
)

func sendColumns(t *testing.T, m ColumnsModel, msgs ...tea.Msg) (ColumnsModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(ColumnsModel)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestColumnsToggleKeepsSelectionOrder(t *testing.T) {
	m := NewColumnsModel([]string{"email"})
	require.Len(t, m.visible, len(model.Catalog))

	// cursor on "name", the first catalog entry
	m, _ = sendColumns(t, m, keySpace)
	assert.Equal(t, []string{"email", "name"}, m.Selected())

	m, _ = sendColumns(t, m, runes("x"))
	assert.Equal(t, []string{"email"}, m.Selected())
}

func TestColumnsPresets(t *testing.T) {
	m := NewColumnsModel(nil)
	m, _ = sendColumns(t, m, runes("3"))
	assert.Equal(t, model.AllColumns(), m.Selected())

	m, _ = sendColumns(t, m, runes("0"))
	assert.Empty(t, m.Selected())

	m, _ = sendColumns(t, m, runes("2"))
	assert.Equal(t, model.PlacesBasicColumns(), m.Selected())

	m, _ = sendColumns(t, m, runes("1"))
	assert.Equal(t, model.DefaultColumns(), m.Selected())
}

func TestColumnsFilter(t *testing.T) {
	m := NewColumnsModel(nil)
	m, _ = sendColumns(t, m, runes("/"))
	require.True(t, m.filtering)

	m, _ = sendColumns(t, m, runes("perempuan"))
	require.Len(t, m.visible, 1)
	assert.Equal(t, "female_students", m.visible[0].Value)

	m, _ = sendColumns(t, m, keyEnter)
	assert.False(t, m.filtering)

	m, _ = sendColumns(t, m, keySpace)
	assert.Equal(t, []string{"female_students"}, m.Selected())
}

func TestColumnsFilterByGroup(t *testing.T) {
	m := NewColumnsModel(nil)
	m.filter.SetValue("koordinat")
	m.applyFilter()
	require.Len(t, m.visible, 2)
	assert.Equal(t, "latitude", m.visible[0].Value)
	assert.Equal(t, "longitude", m.visible[1].Value)
}

func TestColumnsFilterNoMatch(t *testing.T) {
	m := NewColumnsModel(nil)
	m.filter.SetValue("zzz")
	m.applyFilter()
	assert.Empty(t, m.visible)
	assert.Zero(t, m.cursor)
	assert.Contains(t, m.View(), "No column matches the filter")

	m, _ = sendColumns(t, m, keySpace)
	assert.Empty(t, m.Selected())
}

func TestColumnsChosen(t *testing.T) {
	m := NewColumnsModel([]string{"rating", "name"})
	_, cmd := sendColumns(t, m, keyEnter)
	require.NotNil(t, cmd)
	msg, ok := cmd().(ColumnsChosenMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"rating", "name"}, msg.Columns)

	_, cmd = sendColumns(t, m, keyEsc)
	require.NotNil(t, cmd)
	assert.IsType(t, NavigateToForm{}, cmd())
}

func TestMatchesAll(t *testing.T) {
	assert.True(t, matchesAll("Pérempuan didik", "female_students", "peserta didik perempuan"))
	assert.True(t, matchesAll("", "anything"))
	assert.False(t, matchesAll("didik kontak", "female_students", "peserta didik perempuan", "Enrichment"))
	assert.Equal(t, "sekolah", normalize("Sékolah"))
}
