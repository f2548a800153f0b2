package mechanic

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List mechanics who can take appointments",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		mechanics, err := app.Backend.ListMechanics(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list mechanics: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, mechanics)
		}

		out := cmd.OutOrStdout()
		if len(mechanics) == 0 {
			fmt.Fprintln(out, "No active mechanics.")
			return nil
		}
		for _, m := range mechanics {
			fmt.Fprintf(out, "%s  %s\n", m.ID, m.Name)
		}
		return nil
	},
}
