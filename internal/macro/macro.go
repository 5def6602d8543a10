package macro

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind distinguishes folder nodes from macro nodes.
type Kind int

const (
	// KindFolder groups other nodes and is never executed.
	KindFolder Kind = iota + 1
	// KindMacro carries executable contents.
	KindMacro
)

// String returns the lower-case kind name used in library files and the store.
func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindMacro:
		return "macro"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "folder":
		return KindFolder, nil
	case "macro":
		return KindMacro, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

// Macro is a named script. ID is stable for the macro's lifetime; Name is only
// used for display and lookup; Contents is read by the engine at spawn time.
type Macro struct {
	ID       string
	Name     string
	Contents string
}

// NewMacro creates a macro with a freshly generated ID.
func NewMacro(name, contents string) *Macro {
	return &Macro{
		ID:       uuid.NewString(),
		Name:     name,
		Contents: contents,
	}
}

// Folder groups child nodes.
type Folder struct {
	ID       string
	Name     string
	Children []Node
}

// NewFolder creates a folder with a freshly generated ID.
func NewFolder(name string, children ...Node) *Folder {
	return &Folder{
		ID:       uuid.NewString(),
		Name:     name,
		Children: children,
	}
}

// Node is one entry of the tree. Exactly one of Folder or Macro is set,
// matching Kind.
type Node struct {
	Kind   Kind
	Folder *Folder
	Macro  *Macro
}

// MacroNode wraps a macro as a tree node.
func MacroNode(m *Macro) Node {
	return Node{Kind: KindMacro, Macro: m}
}

// FolderNode wraps a folder as a tree node.
func FolderNode(f *Folder) Node {
	return Node{Kind: KindFolder, Folder: f}
}

// ID returns the node's identifier regardless of kind.
func (n Node) ID() string {
	switch n.Kind {
	case KindFolder:
		if n.Folder != nil {
			return n.Folder.ID
		}
	case KindMacro:
		if n.Macro != nil {
			return n.Macro.ID
		}
	}
	return ""
}

// Name returns the node's display name regardless of kind.
func (n Node) Name() string {
	switch n.Kind {
	case KindFolder:
		if n.Folder != nil {
			return n.Folder.Name
		}
	case KindMacro:
		if n.Macro != nil {
			return n.Macro.Name
		}
	}
	return ""
}

// Children returns a folder's children. Macros have none.
func (n Node) Children() []Node {
	if n.Kind == KindFolder && n.Folder != nil {
		return n.Folder.Children
	}
	return nil
}

// Clone returns a deep copy of the node, keeping all IDs.
func (n Node) Clone() Node {
	switch n.Kind {
	case KindMacro:
		if n.Macro == nil {
			return n
		}
		m := *n.Macro
		return MacroNode(&m)
	case KindFolder:
		if n.Folder == nil {
			return n
		}
		f := &Folder{ID: n.Folder.ID, Name: n.Folder.Name}
		if n.Folder.Children != nil {
			f.Children = make([]Node, len(n.Folder.Children))
			for i, c := range n.Folder.Children {
				f.Children[i] = c.Clone()
			}
		}
		return FolderNode(f)
	}
	return n
}
