package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/kectap/internal/model"
)

func captureStdout(t *testing.T, fn func() error) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	runErr := fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, runErr)
	return string(out)
}

func TestColumnsPlain(t *testing.T) {
	out := captureStdout(t, func() error { return runColumns([]string{"-plain"}) })
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(model.Catalog))
	assert.Equal(t, model.Catalog[0].Value, lines[0])
	assert.Contains(t, lines, "name")
}

func TestColumnsGrouped(t *testing.T) {
	out := captureStdout(t, func() error { return runColumns(nil) })
	assert.Contains(t, out, "Presets")
	assert.Contains(t, out, "places-basic")
}
