package library

import (
	"errors"
	"fmt"
)

// Error code constants for LoadError.
const (
	ErrCodeRead        = "L001" // File or directory could not be read
	ErrCodeSyntax      = "L002" // File is not valid YAML or CUE
	ErrCodeSchema      = "L003" // Document does not have the library shape
	ErrCodeNode        = "L004" // A node is malformed
	ErrCodeInvalidTree = "L005" // The resulting tree failed validation
	ErrCodeFormat      = "L006" // Unknown file extension
)

// LoadError describes why a library could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	Line    int // 1-based; 0 when unknown
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is or wraps a LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}
