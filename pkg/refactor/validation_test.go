package refactor

import (
	"errors"
	"testing"

	"github.com/mamaar/constprop/pkg/types"
)

func TestNewValidator(t *testing.T) {
	validator := NewValidator(nil)
	if validator == nil {
		t.Fatal("Expected NewValidator to return a non-nil validator")
	}
	if validator.logger == nil {
		t.Error("Expected validator to have a logger")
	}
}

func TestValidator_ValidatePlan_NilPlan(t *testing.T) {
	validator := NewValidator(nil)

	err := validator.ValidatePlan(nil)
	if err == nil {
		t.Fatal("Expected error with nil plan")
	}
	if !types.IsKind(err, types.InvalidOperation) {
		t.Errorf("Expected InvalidOperation error, got %v", err)
	}
}

func TestValidator_ValidatePlan_EmptyPlan(t *testing.T) {
	validator := NewValidator(nil)
	plan := &types.RefactoringPlan{Changes: []types.Change{}}

	if err := validator.ValidatePlan(plan); err != nil {
		t.Errorf("Expected no error with empty plan, got %v", err)
	}
	if plan.Impact == nil {
		t.Error("Expected Impact to be created")
	}
}

func TestValidator_ValidatePlan_Changes(t *testing.T) {
	testCases := []struct {
		name        string
		changes     []types.Change
		expectError bool
	}{
		{
			name: "Disjoint changes",
			changes: []types.Change{
				{File: "A.java", Start: 0, End: 1},
				{File: "A.java", Start: 5, End: 6},
				{File: "B.java", Start: 0, End: 1},
			},
		},
		{
			name: "Insertion next to replacement",
			changes: []types.Change{
				{File: "A.java", Start: 4, End: 4},
				{File: "A.java", Start: 4, End: 6},
			},
		},
		{
			name: "Overlapping changes",
			changes: []types.Change{
				{File: "A.java", Start: 0, End: 5},
				{File: "A.java", Start: 3, End: 8},
			},
			expectError: true,
		},
		{
			name:        "Inverted range",
			changes:     []types.Change{{File: "A.java", Start: 9, End: 2}},
			expectError: true,
		},
	}

	validator := NewValidator(nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.ValidatePlan(&types.RefactoringPlan{Changes: tc.changes})
			if (err != nil) != tc.expectError {
				t.Errorf("Expected error status %v, got %v", tc.expectError, err)
			}
		})
	}
}

func TestValidator_ValidatePlan_ExistingIssues(t *testing.T) {
	validator := NewValidator(nil)
	conflict := types.Issue{Type: types.IssueNameConflict, Description: "FIVE already declared", Severity: types.Error}

	plan := &types.RefactoringPlan{Impact: &types.ImpactAnalysis{PotentialIssues: []types.Issue{conflict}}}
	err := validator.ValidatePlan(plan)
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if len(verr.Issues) != 1 || verr.Issues[0].Description != conflict.Description {
		t.Errorf("Unexpected issues: %+v", verr.Issues)
	}

	plan = &types.RefactoringPlan{Impact: &types.ImpactAnalysis{PotentialIssues: []types.Issue{conflict}}}
	if err := validator.ValidatePlanWithConfig(plan, &EngineConfig{AllowBreaking: true}); err != nil {
		t.Errorf("Expected AllowBreaking to accept the plan, got %v", err)
	}

	plan = &types.RefactoringPlan{Impact: &types.ImpactAnalysis{PotentialIssues: []types.Issue{
		{Type: types.IssueReadOnly, Description: "skipped read-only file", Severity: types.Info},
	}}}
	if err := validator.ValidatePlan(plan); err != nil {
		t.Errorf("Expected info issues to pass, got %v", err)
	}
}
