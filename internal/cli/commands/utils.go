package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/mamaar/constprop/internal/cli"
	"github.com/mamaar/constprop/pkg/types"
)

// ResultView is the JSON shape of a commit result
type ResultView struct {
	Status        string   `json:"status"`
	Transaction   string   `json:"transaction,omitempty"`
	Field         string   `json:"field,omitempty"`
	Container     string   `json:"container,omitempty"`
	Reused        bool     `json:"reused,omitempty"`
	Sites         int      `json:"sites"`
	AffectedFiles []string `json:"affectedFiles,omitempty"`
	Issues        []string `json:"issues,omitempty"`
	Preview       string   `json:"preview,omitempty"`
}

// NewResultView flattens a result for output
func NewResultView(res *types.CommitResult) ResultView {
	v := ResultView{
		Status:        res.Status.String(),
		Transaction:   res.Transaction,
		Field:         res.Field,
		Container:     res.Container,
		Reused:        res.Reused,
		Sites:         res.Sites,
		AffectedFiles: res.AffectedFiles,
		Preview:       res.Preview,
	}
	if res.Plan != nil && res.Plan.Impact != nil {
		for _, issue := range res.Plan.Impact.PotentialIssues {
			v.Issues = append(v.Issues, fmt.Sprintf("%s: %s", issue.Severity, issue.Description))
		}
	}
	return v
}

// OutputJSON writes data as indented JSON
func OutputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ProcessResult reports a commit result in the selected format
func ProcessResult(app *cli.App, res *types.CommitResult) error {
	if app.Flags.JSON {
		return OutputJSON(app.Out, NewResultView(res))
	}

	w := app.Out
	switch res.Status {
	case types.Previewed:
		fmt.Fprint(w, res.Preview)
	case types.Committed:
		verb := "Introduced"
		if res.Reused {
			verb = "Reused"
		}
		fmt.Fprintf(w, "%s %s in %s, replaced %d occurrence(s)\n", verb, res.Field, res.Container, res.Sites)
		for _, f := range res.AffectedFiles {
			fmt.Fprintf(w, "  - %s\n", relPath(app, f))
		}
		if res.Transaction != "" {
			fmt.Fprintf(w, "Transaction %s (undo with 'constprop undo')\n", res.Transaction)
		}
	case types.Aborted:
		fmt.Fprintln(w, "Aborted: the source changed while the refactoring was prepared")
	case types.Cancelled:
		fmt.Fprintln(w, "Cancelled")
	case types.Empty:
		fmt.Fprintln(w, "Nothing to do")
	}

	if res.Plan != nil && res.Plan.Impact != nil {
		for _, issue := range res.Plan.Impact.PotentialIssues {
			prefix := "  "
			switch issue.Severity {
			case types.Error:
				prefix = "  ERROR: "
			case types.Warning:
				prefix = "  WARN:  "
			case types.Info:
				prefix = "  INFO:  "
			}
			fmt.Fprintf(w, "%s%s\n", prefix, issue.Description)
		}
	}
	return nil
}

func relPath(app *cli.App, path string) string {
	root, err := filepath.Abs(app.Flags.Workspace)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

// parsePosition reads the <file> <line> <column> arguments
func parsePosition(args []string) (string, int, int, error) {
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 1 {
		return "", 0, 0, fmt.Errorf("invalid line: %s", args[1])
	}
	col, err := strconv.Atoi(args[2])
	if err != nil || col < 1 {
		return "", 0, 0, fmt.Errorf("invalid column: %s", args[2])
	}
	return args[0], line, col, nil
}
