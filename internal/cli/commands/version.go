package commands

import (
	"github.com/spf13/cobra"

	"github.com/mamaar/constprop/internal/cli"
)

// NewVersionCommand builds "version"
func NewVersionCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Args:  cobra.NoArgs,
		// version needs neither config nor logger
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cli.ShowVersion(app.Out)
		},
	}
}

// Register adds every subcommand to the application
func Register(app *cli.App) {
	app.AddCommand(
		NewScanCommand(app),
		NewExtractCommand(app),
		NewNameCommand(app),
		NewUndoCommand(app),
		NewHistoryCommand(app),
		NewVersionCommand(app),
	)
}
