package views

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileNames(m FilePickerModel) []string {
	var out []string
	for _, e := range m.files {
		out = append(out, e.Name())
	}
	return out
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.YML", "c.xlsx", "notes.txt", ".hidden.yaml", "~$lock.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	return dir
}

func TestFilePickerFiltersByKind(t *testing.T) {
	dir := seedDir(t)

	params := NewFilePickerModel(PickParams, dir)
	assert.Equal(t, []string{"a.yaml", "b.YML", "sub"}, fileNames(params))

	wb := NewFilePickerModel(PickWorkbook, dir)
	assert.Equal(t, []string{"c.xlsx", "sub"}, fileNames(wb))
}

func TestFilePickerEnter(t *testing.T) {
	dir := seedDir(t)

	m := NewFilePickerModel(PickParams, dir)
	_, cmd := m.Update(keyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, ParamsChosenMsg{Path: filepath.Join(dir, "a.yaml")}, cmd())

	m = NewFilePickerModel(PickWorkbook, dir)
	_, cmd = m.Update(keyEnter)
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateToExplorer{Path: filepath.Join(dir, "c.xlsx")}, cmd())
}

func TestFilePickerDirectories(t *testing.T) {
	dir := seedDir(t)
	m := NewFilePickerModel(PickWorkbook, dir)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, cmd := next.Update(keyEnter)
	assert.Nil(t, cmd)
	m = next.(FilePickerModel)
	assert.Equal(t, filepath.Join(dir, "sub"), m.dir)
	assert.Empty(t, m.files)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(FilePickerModel)
	assert.Equal(t, dir, m.dir)
}

func TestFilePickerError(t *testing.T) {
	m := NewFilePickerModel(PickParams, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, m.err)
	assert.Contains(t, m.View(), "Error:")
}
