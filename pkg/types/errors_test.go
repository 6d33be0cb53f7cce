package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestRefactorError_Error(t *testing.T) {
	testCases := []struct {
		name     string
		err      *RefactorError
		expected string
	}{
		{
			name: "With file location",
			err: &RefactorError{
				Type:    ParseError,
				Message: "Failed to parse",
				File:    "/src/pkg/A.java",
				Line:    15,
				Column:  10,
			},
			expected: "/src/pkg/A.java:15:10: Failed to parse",
		},
		{
			name: "Without file location",
			err: &RefactorError{
				Type:    UnknownCommand,
				Message: "unknown scope \"module\"",
			},
			expected: "unknown scope \"module\"",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.err.Error()
			if result != tc.expected {
				t.Errorf("Expected error message '%s', got '%s'", tc.expected, result)
			}
		})
	}
}

func TestRefactorError_Unwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &RefactorError{
		Type:    FileSystemError,
		Message: "File operation failed",
		Cause:   cause,
	}

	if err.Unwrap() != cause {
		t.Errorf("Expected unwrapped error to be original error, got %v", err.Unwrap())
	}

	errNoCause := &RefactorError{Type: ParseError, Message: "Parse failed"}
	if errNoCause.Unwrap() != nil {
		t.Errorf("Expected unwrapped error to be nil, got %v", errNoCause.Unwrap())
	}
}

func TestIsKind(t *testing.T) {
	stale := NewStaleError(&Literal{File: "A.java", Line: 3, Column: 7, Text: "42"})
	wrapped := fmt.Errorf("collecting occurrences: %w", stale)

	if !IsStale(stale) {
		t.Error("Expected stale error to be recognised")
	}
	if !IsStale(wrapped) {
		t.Error("Expected wrapped stale error to be recognised")
	}
	if IsKind(wrapped, NoRoot) {
		t.Error("Stale error must not match NoRoot")
	}
	if IsStale(errors.New("plain")) {
		t.Error("Plain error must not be stale")
	}
	if IsStale(nil) {
		t.Error("nil must not be stale")
	}
}

func TestNewStaleError_NilLiteral(t *testing.T) {
	err := NewStaleError(nil)
	if err.Type != StaleElement {
		t.Errorf("Expected StaleElement, got %v", err.Type)
	}
	if err.File != "" {
		t.Errorf("Expected no file, got %q", err.File)
	}
}

func TestValidationError_Error(t *testing.T) {
	testCases := []struct {
		name     string
		issues   []Issue
		expected string
	}{
		{
			name:     "No issues",
			expected: "validation failed with 0 issues",
		},
		{
			name: "Two issues",
			issues: []Issue{
				{Type: IssueNameConflict, Description: "ANSWER already declared", Severity: Error},
				{Type: IssueStaticContext, Description: "instance field used statically", Severity: Warning},
			},
			expected: "validation failed with 2 issues: ANSWER already declared; instance field used statically",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := (&ValidationError{Issues: tc.issues}).Error()
			if result != tc.expected {
				t.Errorf("Expected error message '%s', got '%s'", tc.expected, result)
			}
		})
	}
}
