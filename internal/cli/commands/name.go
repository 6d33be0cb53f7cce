package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamaar/constprop/internal/cli"
)

// NewNameCommand builds "name <file> <line> <column>"
func NewNameCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "name <file> <line> <column>",
		Short: "Print the constant name derived for the literal at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return err
			}
			engine, err := app.Engine()
			if err != nil {
				return err
			}
			lit, err := engine.LiteralAt(file, line, col)
			if err != nil {
				return err
			}
			name := engine.SuggestName(lit)
			if app.Flags.JSON {
				return OutputJSON(app.Out, map[string]string{"literal": lit.Text, "type": lit.Type, "name": name})
			}
			fmt.Fprintln(app.Out, name)
			return nil
		},
	}
}
