package library

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/macrology/internal/macro"
)

// cueSchema is the shape every CUE library must satisfy.
const cueSchema = `
#Node: {
	name:      string
	id?:       string
	contents?: string
	children?: [...#Node]
}

#Library: {
	version?:    int & >=1
	max_length?: int & >=0
	nodes:       *[] | [...#Node]
}
`

// ParseCUE reads a CUE library. path is used in error messages and as the
// root segment of derived IDs.
func ParseCUE(data []byte, path string) (*macro.Tree, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(cueSchema, cue.Filename("library-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile library schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeSyntax, Path: path, Line: cueLine(value), Message: err.Error(), Err: err}
	}

	unified := schema.LookupPath(cue.ParsePath("#Library")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error(), Err: err}
	}

	// Fields are read from the file's own value: optional schema fields the
	// file leaves out must not appear as present.
	doc, err := cueDocument(value)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error(), Err: err}
	}

	b := builder{path: path, root: filepath.Base(path)}
	t, err := b.tree(doc)
	if err != nil {
		return nil, err
	}
	if err := b.validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadCUE reads a CUE library file.
func LoadCUE(path string) (*macro.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error(), Err: err}
	}
	return ParseCUE(data, path)
}

func cueDocument(v cue.Value) (document, error) {
	var doc document

	if vv := v.LookupPath(cue.ParsePath("version")); vv.Exists() {
		n, err := vv.Int64()
		if err != nil {
			return doc, fmt.Errorf("version: %w", err)
		}
		doc.Version = int(n)
	}

	if ml := v.LookupPath(cue.ParsePath("max_length")); ml.Exists() {
		n, err := ml.Int64()
		if err != nil {
			return doc, fmt.Errorf("max_length: %w", err)
		}
		doc.MaxLength = int(n)
	}

	nodes, err := cueNodes(v.LookupPath(cue.ParsePath("nodes")))
	if err != nil {
		return doc, err
	}
	doc.Nodes = nodes
	return doc, nil
}

func cueNodes(list cue.Value) ([]nodeSpec, error) {
	if !list.Exists() {
		return nil, nil
	}

	iter, err := list.List()
	if err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}

	var specs []nodeSpec
	for iter.Next() {
		spec, err := cueNode(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func cueNode(v cue.Value) (nodeSpec, error) {
	spec := nodeSpec{line: cueLine(v)}

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return spec, fmt.Errorf("line %d: name: %w", spec.line, err)
	}
	spec.Name = name

	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		if spec.ID, err = idVal.String(); err != nil {
			return spec, fmt.Errorf("%s: id: %w", name, err)
		}
	}

	if cv := v.LookupPath(cue.ParsePath("contents")); cv.Exists() {
		contents, err := cv.String()
		if err != nil {
			return spec, fmt.Errorf("%s: contents: %w", name, err)
		}
		spec.Contents = &contents
	}

	children, err := cueNodes(v.LookupPath(cue.ParsePath("children")))
	if err != nil {
		return spec, fmt.Errorf("%s: %w", name, err)
	}
	spec.Children = children
	return spec, nil
}

func cueLine(v cue.Value) int {
	if pos := v.Pos(); pos.IsValid() {
		return pos.Line()
	}
	return 0
}
