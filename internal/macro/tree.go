package macro

import (
	"errors"
	"fmt"
)

const (
	// CurrentVersion is the library format version written by this package.
	CurrentVersion = 1

	// DefaultMaxLength is the default limit on a macro's contents, in characters.
	DefaultMaxLength = 10_000
)

// Tree is the configuration tree of folders and macros.
type Tree struct {
	Version   int
	MaxLength int
	Nodes     []Node
}

// NewTree creates a tree with default settings holding the given top-level nodes.
func NewTree(nodes ...Node) *Tree {
	return &Tree{
		Version:   CurrentVersion,
		MaxLength: DefaultMaxLength,
		Nodes:     nodes,
	}
}

// WalkFunc is called for every node in pre-order. parent is nil for top-level
// nodes. Returning false stops the walk.
type WalkFunc func(n Node, parent *Folder) bool

// Walk visits every node depth-first, parents before children, in slice order.
func (t *Tree) Walk(fn WalkFunc) {
	if t == nil {
		return
	}
	walkNodes(t.Nodes, nil, fn)
}

func walkNodes(nodes []Node, parent *Folder, fn WalkFunc) bool {
	for _, n := range nodes {
		if !fn(n, parent) {
			return false
		}
		if n.Kind == KindFolder && n.Folder != nil {
			if !walkNodes(n.Folder.Children, n.Folder, fn) {
				return false
			}
		}
	}
	return true
}

// FindMacro returns the macro with the given ID. Folders never match.
func (t *Tree) FindMacro(id string) (*Macro, bool) {
	var found *Macro
	t.Walk(func(n Node, _ *Folder) bool {
		if n.Kind == KindMacro && n.Macro != nil && n.Macro.ID == id {
			found = n.Macro
			return false
		}
		return true
	})
	return found, found != nil
}

// FindMacroByName returns the first macro, in pre-order, whose folded name
// equals the folded form of name.
func (t *Tree) FindMacroByName(name string) (*Macro, bool) {
	want := FoldName(name)
	if want == "" {
		return nil, false
	}
	var found *Macro
	t.Walk(func(n Node, _ *Folder) bool {
		if n.Kind == KindMacro && n.Macro != nil && FoldName(n.Macro.Name) == want {
			found = n.Macro
			return false
		}
		return true
	})
	return found, found != nil
}

// Lookup resolves a reference typed by a user: an exact ID first, then a name.
func (t *Tree) Lookup(ref string) (*Macro, error) {
	if m, ok := t.FindMacro(ref); ok {
		return m, nil
	}
	if m, ok := t.FindMacroByName(ref); ok {
		return m, nil
	}
	return nil, NewNotFoundError(ref)
}

// Macros returns every macro in pre-order.
func (t *Tree) Macros() []*Macro {
	var out []*Macro
	t.Walk(func(n Node, _ *Folder) bool {
		if n.Kind == KindMacro && n.Macro != nil {
			out = append(out, n.Macro)
		}
		return true
	})
	return out
}

// Parent returns the folder directly containing the node with the given ID.
// Top-level nodes and unknown IDs have no parent.
func (t *Tree) Parent(id string) (*Folder, bool) {
	var parent *Folder
	t.Walk(func(n Node, p *Folder) bool {
		if n.ID() == id {
			parent = p
			return false
		}
		return true
	})
	return parent, parent != nil
}

// Validate checks structural invariants: every node has a non-empty unique
// ID, payloads match their Kind, and macro contents fit in MaxLength.
// All problems are reported, joined into one error.
func (t *Tree) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	limit := t.MaxLength
	if limit <= 0 {
		limit = DefaultMaxLength
	}

	t.Walk(func(n Node, _ *Folder) bool {
		if (n.Kind == KindMacro && n.Macro == nil) || (n.Kind == KindFolder && n.Folder == nil) ||
			(n.Kind != KindMacro && n.Kind != KindFolder) {
			errs = append(errs, &TreeError{Code: ErrCodeInvalidNode, Message: fmt.Sprintf("node kind %s has no payload", n.Kind)})
			return true
		}

		id := n.ID()
		if id == "" {
			errs = append(errs, &TreeError{Code: ErrCodeMissingID, Message: "node has no ID", Ref: n.Name()})
		} else if seen[id] {
			errs = append(errs, &TreeError{Code: ErrCodeDuplicateID, Message: "ID used by more than one node", Ref: id})
		}
		seen[id] = true

		if n.Kind == KindMacro {
			if l := len([]rune(n.Macro.Contents)); l > limit {
				errs = append(errs, &TreeError{
					Code:    ErrCodeTooLong,
					Message: fmt.Sprintf("contents are %d characters, limit is %d", l, limit),
					Ref:     n.Macro.Name,
				})
			}
		}
		return true
	})

	return errors.Join(errs...)
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	c := &Tree{Version: t.Version, MaxLength: t.MaxLength}
	if t.Nodes != nil {
		c.Nodes = make([]Node, len(t.Nodes))
		for i, n := range t.Nodes {
			c.Nodes[i] = n.Clone()
		}
	}
	return c
}
