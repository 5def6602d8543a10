package library

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/macrology/internal/macro"
)

// fieldError is a node-level problem found while decoding YAML.
type fieldError struct {
	line int
	msg  string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

// UnmarshalYAML decodes a node mapping, recording its line and rejecting
// unknown keys.
func (n *nodeSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return &fieldError{line: value.Line, msg: "node must be a mapping"}
	}
	n.line = value.Line

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		var err error
		switch key.Value {
		case "id":
			err = val.Decode(&n.ID)
		case "name":
			err = val.Decode(&n.Name)
		case "contents":
			var s string
			err = val.Decode(&s)
			n.Contents = &s
		case "children":
			err = val.Decode(&n.Children)
		default:
			return &fieldError{line: key.Line, msg: fmt.Sprintf("unknown node field %q", key.Value)}
		}

		var fe *fieldError
		if errors.As(err, &fe) {
			return fe
		}
		if err != nil {
			return &fieldError{line: key.Line, msg: fmt.Sprintf("%s: %v", key.Value, err)}
		}
	}
	return nil
}

// ParseYAML reads a YAML library. path is used in error messages and as the
// root segment of derived IDs.
func ParseYAML(r io.Reader, path string) (*macro.Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error(), Err: err}
	}

	var doc document
	if len(bytes.TrimSpace(data)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, yamlError(path, err)
		}
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

// LoadYAML reads a YAML library file.
func LoadYAML(path string) (*macro.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error(), Err: err}
	}
	defer f.Close()
	return ParseYAML(f, path)
}

// MarshalYAML renders t in the YAML library format.
func MarshalYAML(t *macro.Tree) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(documentOf(t)); err != nil {
		return nil, fmt.Errorf("encode library: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode library: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveYAML validates t and writes it to path. The file is replaced
// atomically: readers, including Watch, never see a partial write.
func SaveYAML(path string, t *macro.Tree) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("save library: %w", err)
	}

	data, err := MarshalYAML(t)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save library: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	return nil
}

func yamlError(path string, err error) error {
	var fe *fieldError
	if errors.As(err, &fe) {
		return &LoadError{Code: ErrCodeNode, Path: path, Line: fe.line, Message: fe.msg, Err: err}
	}
	var te *yaml.TypeError
	if errors.As(err, &te) {
		return &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error(), Err: err}
	}
	return &LoadError{Code: ErrCodeSyntax, Path: path, Message: err.Error(), Err: err}
}
