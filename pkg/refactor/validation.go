package refactor

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mamaar/constprop/pkg/types"
)

// Validator checks a plan before it is staged
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// ValidatePlan validates a complete refactoring plan
func (v *Validator) ValidatePlan(plan *types.RefactoringPlan) error {
	return v.ValidatePlanWithConfig(plan, nil)
}

// ValidatePlanWithConfig validates a plan. Error-severity issues fail the
// plan unless AllowBreaking is set; all issues found are recorded on the
// plan's impact.
func (v *Validator) ValidatePlanWithConfig(plan *types.RefactoringPlan, config *EngineConfig) error {
	if plan == nil {
		return &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "refactoring plan is nil",
		}
	}
	if config == nil {
		config = DefaultConfig()
	}
	if plan.Impact == nil {
		plan.Impact = &types.ImpactAnalysis{}
	}

	found := v.validateChanges(plan.Changes)
	plan.Impact.PotentialIssues = append(plan.Impact.PotentialIssues, found...)

	critical := v.filterCriticalIssues(plan.Impact.PotentialIssues)
	if len(critical) > 0 && !config.AllowBreaking {
		v.logger.Debug("plan rejected", zap.String("plan", plan.Name), zap.Int("issues", len(critical)))
		return &types.ValidationError{Issues: critical}
	}
	return nil
}

// validateChanges reports overlapping edits and edits with inverted ranges
func (v *Validator) validateChanges(changes []types.Change) []types.Issue {
	var issues []types.Issue
	byFile := make(map[string][]types.Change)
	for _, ch := range changes {
		if ch.Start > ch.End || ch.Start < 0 {
			issues = append(issues, types.Issue{
				Type:        types.IssueTypeMismatch,
				Description: fmt.Sprintf("invalid range %d-%d", ch.Start, ch.End),
				File:        ch.File,
				Severity:    types.Error,
			})
			continue
		}
		byFile[ch.File] = append(byFile[ch.File], ch)
	}
	for file, list := range byFile {
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
		for i := 1; i < len(list); i++ {
			if list[i].Start < list[i-1].End {
				issues = append(issues, types.Issue{
					Type:        types.IssueNameConflict,
					Description: fmt.Sprintf("overlapping changes at %d and %d", list[i-1].Start, list[i].Start),
					File:        file,
					Severity:    types.Error,
				})
			}
		}
	}
	return issues
}

func (v *Validator) filterCriticalIssues(issues []types.Issue) []types.Issue {
	var critical []types.Issue
	for _, issue := range issues {
		if issue.Severity == types.Error {
			critical = append(critical, issue)
		}
	}
	return critical
}
