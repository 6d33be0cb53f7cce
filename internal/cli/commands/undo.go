package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mamaar/constprop/internal/cli"
	"github.com/mamaar/constprop/pkg/types"
)

// NewUndoCommand builds "undo"
func NewUndoCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the files of the last transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			res, err := engine.Undo(cmd.Context())
			if err != nil {
				return err
			}
			if app.Flags.JSON {
				return OutputJSON(app.Out, NewResultView(res))
			}
			switch res.Status {
			case types.Committed:
				fmt.Fprintf(app.Out, "Undid %s (%s in %s)\n", res.Transaction, res.Field, res.Container)
				for _, f := range res.AffectedFiles {
					fmt.Fprintf(app.Out, "  - %s\n", relPath(app, f))
				}
			case types.Aborted:
				fmt.Fprintf(app.Out, "Cannot undo %s: files changed since it was applied\n", res.Transaction)
				return cli.ErrSilent
			case types.Empty:
				fmt.Fprintln(app.Out, "Nothing to undo")
			}
			return nil
		},
	}
}

// NewHistoryCommand builds "history"
func NewHistoryCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the journaled transactions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			entries, err := engine.History()
			if err != nil {
				return err
			}
			if app.Flags.JSON {
				type view struct {
					ID        string   `json:"id"`
					Time      string   `json:"time"`
					Field     string   `json:"field"`
					Container string   `json:"container"`
					Files     []string `json:"files"`
				}
				out := make([]view, 0, len(entries))
				for _, e := range entries {
					v := view{ID: e.ID, Time: e.Time.Format("2006-01-02 15:04:05"), Field: e.Field, Container: e.Container}
					for _, f := range e.Files {
						v.Files = append(v.Files, relPath(app, f.Path))
					}
					out = append(out, v)
				}
				return OutputJSON(app.Out, out)
			}
			if len(entries) == 0 {
				fmt.Fprintln(app.Out, "No transactions")
				return nil
			}
			table := tablewriter.NewWriter(app.Out)
			table.SetHeader([]string{"Transaction", "Time", "Field", "Container", "Files"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			for _, e := range entries {
				table.Append([]string{e.ID, e.Time.Format("2006-01-02 15:04:05"), e.Field, e.Container, fmt.Sprintf("%d", len(e.Files))})
			}
			table.Render()
			return nil
		},
	}
}
