package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
)

var towCmd = &cobra.Command{
	Use:   "tow-dispatched [appointment-id]",
	Short: "Record that the tow truck was sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		id, err := cli.ParseID(args[0], "appointment")
		if err != nil {
			return err
		}

		appt, err := app.Backend.DispatchTow(cmd.Context(), commands.DispatchTowCommand{
			AppointmentID: id,
			OperatorID:    app.OperatorID,
		})
		if err != nil {
			return fmt.Errorf("failed to record tow dispatch: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, appt)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tow dispatched to %s\n", appt.TowAddress)
		return nil
	},
}
