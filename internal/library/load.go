package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/macrology/internal/macro"
)

// IsLibraryFile reports whether path has a library file extension.
func IsLibraryFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// Load reads a library file or a directory of library files.
func Load(path string) (*macro.Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error(), Err: err}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadFile reads one library file, choosing the format by extension.
func LoadFile(path string) (*macro.Tree, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".cue":
		return LoadCUE(path)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf("unsupported library extension %q", filepath.Ext(path))}
	}
}

// LoadDir reads every library file directly inside dir, in lexical order,
// and concatenates their top-level nodes. The smallest positive max_length
// of the files applies to the merged tree.
func LoadDir(dir string) (*macro.Tree, error) {
	files, err := FindLibraryFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: dir, Message: err.Error(), Err: err}
	}

	merged := macro.NewTree()
	maxLength := 0
	for _, file := range files {
		t, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		merged.Nodes = append(merged.Nodes, t.Nodes...)
		if t.MaxLength > 0 && (maxLength == 0 || t.MaxLength < maxLength) {
			maxLength = t.MaxLength
		}
	}
	if maxLength > 0 {
		merged.MaxLength = maxLength
	}

	// IDs must also be unique across files.
	if err := (builder{path: dir}).validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindLibraryFiles returns the library files directly inside dir, sorted.
// Hidden files are skipped.
func FindLibraryFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !IsLibraryFile(name) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
