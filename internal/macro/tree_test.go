package macro

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Tree {
	synth := &Macro{ID: "m-synth", Name: "Basic Synth", Contents: "/ac Synthesis"}
	touch := &Macro{ID: "m-touch", Name: "Touch", Contents: "/ac Touch"}
	greet := &Macro{ID: "m-greet", Name: "Greet", Contents: "/echo hi"}

	inner := &Folder{ID: "f-inner", Name: "Inner", Children: []Node{MacroNode(touch)}}
	crafting := &Folder{ID: "f-craft", Name: "Crafting", Children: []Node{MacroNode(synth), FolderNode(inner)}}

	return NewTree(FolderNode(crafting), MacroNode(greet))
}

func TestTree_FindMacro(t *testing.T) {
	tree := sampleTree()

	m, ok := tree.FindMacro("m-touch")
	require.True(t, ok)
	assert.Equal(t, "Touch", m.Name)

	_, ok = tree.FindMacro("f-craft")
	assert.False(t, ok, "folders are not macros")

	_, ok = tree.FindMacro("missing")
	assert.False(t, ok)
}

func TestTree_FindMacroByName(t *testing.T) {
	tree := sampleTree()

	tests := []struct {
		name  string
		query string
		want  string
		found bool
	}{
		{"exact", "Greet", "m-greet", true},
		{"case insensitive", "basic SYNTH", "m-synth", true},
		{"surrounding space", "  Touch ", "m-touch", true},
		{"folder name", "Crafting", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := tree.FindMacroByName(tt.query)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, m.ID)
			}
		})
	}
}

func TestTree_Lookup(t *testing.T) {
	tree := sampleTree()

	m, err := tree.Lookup("m-greet")
	require.NoError(t, err)
	assert.Equal(t, "Greet", m.Name)

	m, err = tree.Lookup("greet")
	require.NoError(t, err)
	assert.Equal(t, "m-greet", m.ID)

	_, err = tree.Lookup("nope")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestTree_MacrosPreOrder(t *testing.T) {
	var ids []string
	for _, m := range sampleTree().Macros() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m-synth", "m-touch", "m-greet"}, ids)
}

func TestTree_Parent(t *testing.T) {
	tree := sampleTree()

	p, ok := tree.Parent("m-touch")
	require.True(t, ok)
	assert.Equal(t, "f-inner", p.ID)

	_, ok = tree.Parent("m-greet")
	assert.False(t, ok, "top-level nodes have no parent")
}

func TestTree_Walk_Stops(t *testing.T) {
	visited := 0
	sampleTree().Walk(func(n Node, _ *Folder) bool {
		visited++
		return n.ID() != "m-synth"
	})
	assert.Equal(t, 2, visited)
}

func TestTree_Validate(t *testing.T) {
	require.NoError(t, sampleTree().Validate())

	dup := NewTree(
		MacroNode(&Macro{ID: "same", Name: "A"}),
		MacroNode(&Macro{ID: "same", Name: "B"}),
	)
	err := dup.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeDuplicateID))

	missing := NewTree(MacroNode(&Macro{Name: "anon"}))
	err = missing.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeMissingID))

	long := NewTree(MacroNode(&Macro{ID: "x", Name: "long", Contents: strings.Repeat("a", 11)}))
	long.MaxLength = 10
	err = long.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeTooLong))

	bad := NewTree(Node{Kind: KindMacro})
	err = bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ErrCodeInvalidNode))
}

func TestTree_Clone(t *testing.T) {
	tree := sampleTree()
	c := tree.Clone()

	m, _ := c.FindMacro("m-synth")
	m.Contents = "changed"

	orig, _ := tree.FindMacro("m-synth")
	assert.Equal(t, "/ac Synthesis", orig.Contents, "clone must not share macros")
}

func TestKind_RoundTrip(t *testing.T) {
	for _, k := range []Kind{KindFolder, KindMacro} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("widget")
	assert.Error(t, err)
}

func TestNewMacro_UniqueIDs(t *testing.T) {
	a := NewMacro("a", "")
	b := NewMacro("a", "")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestFoldName(t *testing.T) {
	// precomposed e-acute against E followed by a combining acute accent
	assert.Equal(t, FoldName("Caf\u00e9"), FoldName("CAFE\u0301"))
	assert.Equal(t, "greet", FoldName("  GREET "))
}

func TestHolder(t *testing.T) {
	h := NewHolder(nil)
	assert.NotNil(t, h.Tree(), "holder never returns nil")

	tree := sampleTree()
	h.Set(tree)
	assert.Same(t, tree, h.Tree())
}
