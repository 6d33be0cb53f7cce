package types

import (
	"errors"
	"fmt"
	"strings"
)

// RefactorError represents errors in refactoring operations
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

type ErrorType int

const (
	ParseError ErrorType = iota
	SymbolNotFound
	InvalidOperation
	NameConflict
	FileSystemError
	StaleElement
	NoRoot
	UnknownCommand
)

// String returns the string representation of an ErrorType
func (t ErrorType) String() string {
	switch t {
	case ParseError:
		return "ParseError"
	case SymbolNotFound:
		return "SymbolNotFound"
	case InvalidOperation:
		return "InvalidOperation"
	case NameConflict:
		return "NameConflict"
	case FileSystemError:
		return "FileSystemError"
	case StaleElement:
		return "StaleElement"
	case NoRoot:
		return "NoRoot"
	case UnknownCommand:
		return "UnknownCommand"
	default:
		return "Unknown"
	}
}

// NewStaleError reports a literal that no longer matches the source tree
func NewStaleError(lit *Literal) *RefactorError {
	if lit == nil {
		return &RefactorError{Type: StaleElement, Message: "element is no longer valid"}
	}
	return &RefactorError{
		Type:    StaleElement,
		Message: fmt.Sprintf("literal %s is no longer valid", lit.Text),
		File:    lit.File,
		Line:    lit.Line,
		Column:  lit.Column,
	}
}

// IsKind reports whether err wraps a RefactorError of the given type
func IsKind(err error, kind ErrorType) bool {
	var re *RefactorError
	if errors.As(err, &re) {
		return re.Type == kind
	}
	return false
}

// IsStale reports whether err wraps a StaleElement error
func IsStale(err error) bool {
	return IsKind(err, StaleElement)
}

// ValidationError represents validation failures
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed with 0 issues"
	}
	descs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		descs = append(descs, issue.Description)
	}
	return fmt.Sprintf("validation failed with %d issues: %s", len(e.Issues), strings.Join(descs, "; "))
}
