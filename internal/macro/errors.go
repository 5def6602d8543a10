package macro

import (
	"errors"
	"fmt"
)

// TreeError describes a lookup or validation failure on a Tree.
type TreeError struct {
	// Code identifies the error category.
	Code TreeErrorCode

	// Message is a human-readable description.
	Message string

	// Ref is the ID or name the caller asked about, if any.
	Ref string
}

// TreeErrorCode categorizes tree errors.
type TreeErrorCode string

const (
	// ErrCodeNotFound indicates no macro matches the reference.
	ErrCodeNotFound TreeErrorCode = "NOT_FOUND"

	// ErrCodeDuplicateID indicates two nodes share an ID.
	ErrCodeDuplicateID TreeErrorCode = "DUPLICATE_ID"

	// ErrCodeMissingID indicates a node has an empty ID.
	ErrCodeMissingID TreeErrorCode = "MISSING_ID"

	// ErrCodeTooLong indicates macro contents exceed the tree's MaxLength.
	ErrCodeTooLong TreeErrorCode = "TOO_LONG"

	// ErrCodeInvalidNode indicates a node whose Kind does not match its payload.
	ErrCodeInvalidNode TreeErrorCode = "INVALID_NODE"
)

// Error implements the error interface.
func (e *TreeError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Ref)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a TreeError with ErrCodeNotFound.
func IsNotFound(err error) bool {
	var te *TreeError
	if errors.As(err, &te) {
		return te.Code == ErrCodeNotFound
	}
	return false
}

// NewNotFoundError creates a TreeError for a missing macro.
func NewNotFoundError(ref string) *TreeError {
	return &TreeError{
		Code:    ErrCodeNotFound,
		Message: "no macro with that ID or name",
		Ref:     ref,
	}
}
