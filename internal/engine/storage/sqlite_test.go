package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kectap.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestInsertSheet(t *testing.T) {
	s, _ := newTestStore(t)

	n, err := s.InsertSheet("J1", "Bergas", []string{"name", "phone"}, [][]string{
		{"SD 1", "0298"},
		{"SD 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InsertSheet("J1", "Bawen", []string{"name", "rating", `odd "col"`}, [][]string{
		{"SD 3", "4.5", "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	bySheet, err := s.CountBySheet()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Bergas": 2, "Bawen": 1}, bySheet)

	phones, err := s.Column("Bergas", "phone")
	require.NoError(t, err)
	assert.Equal(t, []string{"0298", ""}, phones)

	odd, err := s.Column("Bawen", `odd "col"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, odd)

	_, err = s.Column("Bawen", "missing")
	assert.Error(t, err)
}

func TestReservedHeadersIgnored(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.InsertSheet("J1", "Hasil", []string{"id", "sheet", "name", "name"}, [][]string{
		{"99", "fake", "SD 1", "dup"},
	})
	require.NoError(t, err)

	names, err := s.Column("Hasil", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"SD 1"}, names)
}

func TestReopenKeepsColumns(t *testing.T) {
	s, path := newTestStore(t)
	_, err := s.InsertSheet("J1", "Bergas", []string{"npsn"}, [][]string{{"20319"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.InsertSheet("J2", "Bergas", []string{"npsn"}, [][]string{{"20320"}})
	require.NoError(t, err)

	vals, err := s2.Column("Bergas", "npsn")
	require.NoError(t, err)
	assert.Equal(t, []string{"20319", "20320"}, vals)
}

func TestDeleteJob(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.InsertSheet("J1", "A", []string{"name"}, [][]string{{"x"}, {"y"}})
	require.NoError(t, err)
	_, err = s.InsertSheet("J2", "A", []string{"name"}, [][]string{{"z"}})
	require.NoError(t, err)

	n, err := s.DeleteJob("J1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
