package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/macrology/internal/engine"
	"github.com/roach88/macrology/internal/macro"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTree builds a small tree with one nested folder.
func createTestTree() *macro.Tree {
	inner := &macro.Folder{ID: "f-inner", Name: "Inner", Children: []macro.Node{
		macro.MacroNode(&macro.Macro{ID: "m-touch", Name: "Touch", Contents: "/ac Touch <wait.3>"}),
	}}
	crafting := &macro.Folder{ID: "f-craft", Name: "Crafting", Children: []macro.Node{
		macro.MacroNode(&macro.Macro{ID: "m-synth", Name: "Synth", Contents: "/ac Synthesis\n/loop"}),
		macro.FolderNode(inner),
	}}
	return macro.NewTree(
		macro.FolderNode(crafting),
		macro.MacroNode(&macro.Macro{ID: "m-greet", Name: "Greet", Contents: "/echo hi"}),
	)
}

// createTestRunInfo creates a run snapshot with minimal required fields.
func createTestRunInfo(runID, macroID string, seq int64) engine.RunInfo {
	return engine.RunInfo{
		RunID:     runID,
		MacroID:   macroID,
		MacroName: "Macro " + macroID,
		Seq:       seq,
		Lines:     2,
		Status:    engine.StatusActive,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
