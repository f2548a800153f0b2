package mechanic

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [mechanic-id]",
	Short: "Stop offering a mechanic for new appointments",
	Long: `Take a mechanic out of rotation. Appointments already on the
mechanic's agenda are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], false)
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate [mechanic-id]",
	Short: "Offer a mechanic for new appointments again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], true)
	},
}

func setActive(cmd *cobra.Command, rawID string, active bool) error {
	app, err := cli.RequireApp()
	if err != nil {
		return err
	}
	id, err := cli.ParseID(rawID, "mechanic")
	if err != nil {
		return err
	}

	m, err := app.Backend.SetMechanicActive(cmd.Context(), commands.SetMechanicActiveCommand{
		MechanicID: id,
		Active:     active,
	})
	if err != nil {
		return fmt.Errorf("failed to update mechanic: %w", err)
	}

	if cli.JSONOutput() {
		return cli.PrintJSON(cmd, m)
	}
	state := "inactive"
	if m.Active {
		state = "active"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Mechanic %s is now %s\n", m.Name, state)
	return nil
}
