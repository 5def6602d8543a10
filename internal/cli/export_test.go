package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macrology/internal/library"
)

func importLibrary(t *testing.T, dbPath string) {
	t.Helper()
	_, _, err := execute(t, NewImportCommand(&RootOptions{Format: "text"}), "--db", dbPath, writeLibrary(t, testLibrary))
	require.NoError(t, err)
}

func TestExportToStdout(t *testing.T) {
	isolateConfig(t)
	dbPath := filepath.Join(t.TempDir(), "macrology.db")
	importLibrary(t, dbPath)

	out, _, err := execute(t, NewExportCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)

	tree, err := library.ParseYAML(strings.NewReader(out), "export.yaml")
	require.NoError(t, err)
	m, ok := tree.FindMacro("greet")
	require.True(t, ok)
	assert.Equal(t, "/defaultwait 0\n/echo hello\n/echo world", m.Contents)
}

func TestExportRoundTrip(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "macrology.db")
	importLibrary(t, dbPath)

	outPath := filepath.Join(dir, "exported.yaml")
	out, _, err := execute(t, NewExportCommand(&RootOptions{Format: "text"}), "--db", dbPath, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Exported 3 macro(s)")

	original, err := library.Load(writeLibrary(t, testLibrary))
	require.NoError(t, err)
	exported, err := library.Load(outPath)
	require.NoError(t, err)
	assert.Equal(t, original.Macros(), exported.Macros())
}

func TestExportMissingDatabase(t *testing.T) {
	isolateConfig(t)

	_, _, err := execute(t, NewExportCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}
