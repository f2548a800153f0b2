package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
)

var cancelComment string

var cancelCmd = &cobra.Command{
	Use:   "cancel [appointment-id]",
	Short: "Cancel an appointment",
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

		appt, err := app.Backend.SubmitCancellation(cmd.Context(), commands.SubmitCancellationCommand{
			AppointmentID: id,
			OperatorID:    app.OperatorID,
			Comment:       cancelComment,
		})
		if err != nil {
			return fmt.Errorf("failed to cancel appointment: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, appt)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Appointment %s cancelled\n", cli.ShortID(appt.ID))
		return nil
	},
}

func init() {
	cancelCmd.Flags().StringVar(&cancelComment, "comment", "", "note kept in the appointment history")
}
