package mechanic

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Register a mechanic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		m, err := app.Backend.RegisterMechanic(cmd.Context(), commands.RegisterMechanicCommand{Name: args[0]})
		if err != nil {
			return fmt.Errorf("failed to add mechanic: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, m)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mechanic added: %s\n", m.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  name: %s\n", m.Name)
		return nil
	},
}
