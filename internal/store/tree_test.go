package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/macrology/internal/macro"
)

func TestSaveTree_LoadTree_PreservesStructure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tree := createTestTree()
	tree.MaxLength = 500
	require.NoError(t, s.SaveTree(ctx, tree))

	loaded, err := s.LoadTree(ctx)
	require.NoError(t, err)

	assert.Equal(t, tree, loaded)
}

func TestSaveTree_ReplacesPreviousTree(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTree(ctx, createTestTree()))

	replacement := macro.NewTree(macro.MacroNode(&macro.Macro{ID: "only", Name: "Only", Contents: "/echo"}))
	require.NoError(t, s.SaveTree(ctx, replacement))

	loaded, err := s.LoadTree(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Macros(), 1)
	assert.Equal(t, "only", loaded.Macros()[0].ID)
}

func TestSaveTree_InvalidTreeLeavesStoreUntouched(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTree(ctx, createTestTree()))

	dup := macro.NewTree(
		macro.MacroNode(&macro.Macro{ID: "x", Name: "A"}),
		macro.MacroNode(&macro.Macro{ID: "x", Name: "B"}),
	)
	err := s.SaveTree(ctx, dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(macro.ErrCodeDuplicateID))

	loaded, err := s.LoadTree(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Macros(), 3)
}

func TestLoadTree_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	tree, err := s.LoadTree(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tree.Nodes)
	assert.Equal(t, macro.DefaultMaxLength, tree.MaxLength)
	assert.Equal(t, macro.CurrentVersion, tree.Version)
}

func TestSaveTree_EmptyFolder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tree := macro.NewTree(macro.FolderNode(&macro.Folder{ID: "empty", Name: "Empty"}))
	require.NoError(t, s.SaveTree(ctx, tree))

	loaded, err := s.LoadTree(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, macro.KindFolder, loaded.Nodes[0].Kind)
	assert.Empty(t, loaded.Nodes[0].Children())
}
