package library

import (
	"fmt"

	"github.com/roach88/macrology/internal/macro"
)

// document is the format-independent shape of a library file.
type document struct {
	Version   int        `yaml:"version,omitempty"`
	MaxLength int        `yaml:"max_length,omitempty"`
	Nodes     []nodeSpec `yaml:"nodes"`
}

// nodeSpec is one entry of a library file. Contents is a pointer so an empty
// macro ("contents: ''") can be told apart from a folder.
type nodeSpec struct {
	ID       string     `yaml:"id,omitempty"`
	Name     string     `yaml:"name"`
	Contents *string    `yaml:"contents,omitempty"`
	Children []nodeSpec `yaml:"children,omitempty"`

	line int // source line, when the format reports one
}

// builder turns documents into a tree, deriving missing IDs.
type builder struct {
	path string // reported in errors
	root string // first segment of derived IDs
}

func (b builder) tree(doc document) (*macro.Tree, error) {
	t := macro.NewTree()
	if doc.Version != 0 {
		t.Version = doc.Version
	}
	if doc.MaxLength < 0 {
		return nil, &LoadError{Code: ErrCodeSchema, Path: b.path, Message: "max_length must not be negative"}
	}
	if doc.MaxLength > 0 {
		t.MaxLength = doc.MaxLength
	}

	nodes, err := b.nodes(doc.Nodes, []string{pathSegment(b.root, 0)})
	if err != nil {
		return nil, err
	}
	t.Nodes = nodes
	return t, nil
}

func (b builder) nodes(specs []nodeSpec, path []string) ([]macro.Node, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	out := make([]macro.Node, 0, len(specs))
	seen := make(map[string]int)
	for _, spec := range specs {
		n, err := b.node(spec, path, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (b builder) node(spec nodeSpec, path []string, seen map[string]int) (macro.Node, error) {
	if spec.Name == "" {
		return macro.Node{}, &LoadError{Code: ErrCodeNode, Path: b.path, Line: spec.line, Message: "node has no name"}
	}
	if spec.Contents != nil && len(spec.Children) > 0 {
		return macro.Node{}, &LoadError{
			Code:    ErrCodeNode,
			Path:    b.path,
			Line:    spec.line,
			Message: fmt.Sprintf("node %q has both contents and children", spec.Name),
		}
	}

	// Siblings with the same name get distinct path segments.
	segment := pathSegment(spec.Name, seen[spec.Name])
	seen[spec.Name]++

	childPath := append(append([]string(nil), path...), segment)
	id := spec.ID
	if id == "" {
		id = segmentsID(childPath)
	}

	if spec.Contents != nil {
		return macro.MacroNode(&macro.Macro{ID: id, Name: spec.Name, Contents: *spec.Contents}), nil
	}

	children, err := b.nodes(spec.Children, childPath)
	if err != nil {
		return macro.Node{}, err
	}
	return macro.FolderNode(&macro.Folder{ID: id, Name: spec.Name, Children: children}), nil
}

// validate wraps tree validation failures in a LoadError.
func (b builder) validate(t *macro.Tree) error {
	if err := t.Validate(); err != nil {
		return &LoadError{Code: ErrCodeInvalidTree, Path: b.path, Message: err.Error(), Err: err}
	}
	return nil
}

// documentOf converts a tree back into its file shape. IDs are always written
// so a saved library keeps its IDs when it is moved or renamed.
func documentOf(t *macro.Tree) document {
	return document{
		Version:   t.Version,
		MaxLength: t.MaxLength,
		Nodes:     specsOf(t.Nodes),
	}
}

func specsOf(nodes []macro.Node) []nodeSpec {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]nodeSpec, 0, len(nodes))
	for _, n := range nodes {
		spec := nodeSpec{ID: n.ID(), Name: n.Name()}
		if n.Kind == macro.KindMacro {
			contents := n.Macro.Contents
			spec.Contents = &contents
		} else {
			spec.Children = specsOf(n.Children())
		}
		out = append(out, spec)
	}
	return out
}
