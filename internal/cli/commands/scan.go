package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mamaar/constprop/internal/cli"
	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/types"
)

// FindingView is the JSON shape of a finding
type FindingView struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Literal string `json:"literal"`
	Class   string `json:"class"`
	Name    string `json:"suggestedName"`
	Mode    string `json:"mode"`
}

// NewScanCommand builds "scan [paths...]"
func NewScanCommand(app *cli.App) *cobra.Command {
	var (
		auto        bool
		scope       string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:     "scan [paths...]",
		Short:   "Report literals that qualify for extraction",
		Example: cli.ScanExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := app.Config.AutoSettings()
			if auto {
				settings.Fix = true
			}
			if cmd.Flags().Changed("scope") {
				kind, err := types.ParseScopeKind(scope)
				if err != nil {
					return err
				}
				settings.Scope = kind
			}

			engine, err := app.Engine()
			if err != nil {
				return err
			}
			in := inspection.NewInspector(settings, app.Config.NamingPolicy(), app.Logger.Named("inspection"))
			filter, err := pathFilter(args)
			if err != nil {
				return err
			}

			if !settings.Fix && !(settings.Enabled && interactive) {
				return reportFindings(app, scoped(in.InspectWorkspace(engine.Workspace(), nil), filter))
			}
			return autoFix(cmd, app, engine, in, filter, interactive)
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "Apply every fix with the remembered scope and suggested name")
	cmd.Flags().StringVarP(&scope, "scope", "s", "class", "Scope used by --auto: class, hierarchy or package")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Open the dialog for the first literal of each class (auto.enabled)")
	return cmd
}

// pathFilter keeps findings under the given files or directories
func pathFilter(args []string) (func(string) bool, error) {
	if len(args) == 0 {
		return func(string) bool { return true }, nil
	}
	roots := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		roots = append(roots, abs)
	}
	return func(path string) bool {
		for _, r := range roots {
			if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}, nil
}

func scoped(findings []*inspection.Finding, keep func(string) bool) []*inspection.Finding {
	out := findings[:0]
	for _, f := range findings {
		if keep(f.File) {
			out = append(out, f)
		}
	}
	return out
}

func reportFindings(app *cli.App, findings []*inspection.Finding) error {
	if app.Flags.JSON {
		views := make([]FindingView, 0, len(findings))
		for _, f := range findings {
			views = append(views, FindingView{
				File: relPath(app, f.File), Line: f.Line, Column: f.Column,
				Literal: f.Text, Class: f.Class, Name: f.Fix.Name, Mode: f.Mode.String(),
			})
		}
		return OutputJSON(app.Out, views)
	}

	if len(findings) == 0 {
		fmt.Fprintln(app.Out, "No literals to extract")
		return nil
	}
	table := tablewriter.NewWriter(app.Out)
	table.SetHeader([]string{"Location", "Literal", "Suggested Name"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
	for _, f := range findings {
		table.Append([]string{fmt.Sprintf("%s:%d:%d", relPath(app, f.File), f.Line, f.Column), f.Text, f.Fix.Name})
	}
	table.SetFooter([]string{fmt.Sprintf("%d literal(s)", len(findings)), "", ""})
	table.Render()
	return nil
}

// autoFix applies or prompts fixes one at a time. Each commit re-parses
// the touched files, so the workspace is inspected again after it.
func autoFix(cmd *cobra.Command, app *cli.App, engine *refactor.DefaultEngine, in *inspection.Inspector, keep func(string) bool, interactive bool) error {
	var prompter *cli.LinePrompter
	if interactive {
		p, err := cli.NewLinePrompter(app.In, app.Out)
		if err != nil {
			return err
		}
		defer p.Close()
		prompter = p
	}

	session := inspection.NewSession()
	tried := make(map[string]bool)
	var results []*types.CommitResult
	for {
		next := nextFinding(scoped(in.InspectWorkspace(engine.Workspace(), session), keep), tried)
		if next == nil {
			break
		}
		tried[next.File+"\x00"+next.Text] = true

		var (
			res *types.CommitResult
			err error
		)
		switch next.Mode {
		case inspection.AutoApply:
			res, err = engine.Propagate(cmd.Context(), next.Fix.Command())
		case inspection.AutoPrompt:
			res, err = inspection.RunDialog(cmd.Context(), prompter, engine, next.Fix)
		}
		session.Done(next.Class)
		if err != nil {
			return err
		}
		if res.Status == types.Committed {
			results = append(results, res)
		}
		if cmd.Context().Err() != nil {
			break
		}
	}

	if app.Flags.JSON {
		views := make([]ResultView, 0, len(results))
		for _, r := range results {
			views = append(views, NewResultView(r))
		}
		return OutputJSON(app.Out, views)
	}
	for _, r := range results {
		if err := ProcessResult(app, r); err != nil {
			return err
		}
	}
	fmt.Fprintf(app.Out, "%d constant(s) introduced\n", len(results))
	return nil
}

// nextFinding returns the first automatic finding not tried yet
func nextFinding(findings []*inspection.Finding, tried map[string]bool) *inspection.Finding {
	for _, f := range findings {
		if f.Mode == inspection.Offer || tried[f.File+"\x00"+f.Text] {
			continue
		}
		return f
	}
	return nil
}
