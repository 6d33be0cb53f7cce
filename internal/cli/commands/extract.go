package commands

import (
	"github.com/spf13/cobra"

	"github.com/mamaar/constprop/internal/cli"
	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/types"
)

// NewExtractCommand builds "extract <file> <line> <column>"
func NewExtractCommand(app *cli.App) *cobra.Command {
	var (
		scope       string
		name        string
		preview     bool
		interactive bool
	)
	cmd := &cobra.Command{
		Use:     "extract <file> <line> <column>",
		Short:   "Introduce a constant for the literal at a position and propagate it",
		Example: cli.ExtractExample,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return err
			}
			kind, err := types.ParseScopeKind(scope)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("scope") && app.Config != nil {
				kind = app.Config.AutoSettings().Scope
			}

			engine, err := app.Engine()
			if err != nil {
				return err
			}
			lit, err := engine.LiteralAt(file, line, col)
			if err != nil {
				return err
			}
			if name == "" {
				name = engine.SuggestName(lit)
			}
			fix := inspection.QuickFix{Literal: lit, Name: name, Scope: kind}

			var res *types.CommitResult
			if interactive {
				prompter, err := cli.NewLinePrompter(app.In, app.Out)
				if err != nil {
					return err
				}
				defer prompter.Close()
				res, err = inspection.RunDialog(cmd.Context(), prompter, engine, fix)
				if err != nil {
					return err
				}
			} else {
				run := fix.Command()
				run.Preview = preview
				res, err = engine.Propagate(cmd.Context(), run)
				if err != nil {
					return err
				}
			}
			return ProcessResult(app, res)
		},
	}
	cmd.Flags().StringVarP(&scope, "scope", "s", "class", "Propagation scope: class, hierarchy or package")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Constant name (default is derived from the literal)")
	cmd.Flags().BoolVarP(&preview, "preview", "p", false, "Show the occurrences and diff without writing")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask for name, scope and confirmation")
	return cmd
}
