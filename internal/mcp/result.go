package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mamaar/constprop/pkg/types"
)

// PropagationResult is the structured output of propagate_constant and
// undo_propagation
type PropagationResult struct {
	Status        string   `json:"status"`
	Transaction   string   `json:"transaction,omitempty"`
	Field         string   `json:"field,omitempty"`
	Container     string   `json:"container,omitempty"`
	Reused        bool     `json:"reused,omitempty"`
	Sites         int      `json:"sites"`
	AffectedFiles []string `json:"affected_files,omitempty"`
	Issues        []string `json:"issues,omitempty"`
	Preview       string   `json:"preview,omitempty"`
}

func newPropagationResult(state *State, res *types.CommitResult) PropagationResult {
	out := PropagationResult{
		Status:      res.Status.String(),
		Transaction: res.Transaction,
		Field:       res.Field,
		Container:   res.Container,
		Reused:      res.Reused,
		Sites:       res.Sites,
		Preview:     res.Preview,
	}
	for _, f := range res.AffectedFiles {
		out.AffectedFiles = append(out.AffectedFiles, state.Rel(f))
	}
	if res.Plan != nil && res.Plan.Impact != nil {
		for _, issue := range res.Plan.Impact.PotentialIssues {
			out.Issues = append(out.Issues, issue.Severity.String()+": "+issue.Description)
		}
	}
	return out
}

// textResult marshals v to JSON and wraps it in a single text block
func textResult(v any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(b))
}

// errResult returns a result that signals a tool error to the model
func errResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
