package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
)

var (
	assignMechanic string
	assignAt       string
	assignReason   string
)

var assignCmd = &cobra.Command{
	Use:   "assign [appointment-id]",
	Short: "Confirm an appointment onto a mechanic's agenda",
	Long: `Confirm and assign an appointment. Moving an already confirmed
appointment to another time needs --reason.

Examples:
  workshop appointment assign 0b6c... --mechanic 6f1c... --at "2026-03-02 10:00"
  workshop appointment assign 0b6c... --mechanic 6f1c... --at "2026-03-03 09:00" --reason "parts delayed"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		id, err := cli.ParseID(args[0], "appointment")
		if err != nil {
			return err
		}

		assignCmd := commands.SubmitAssignmentCommand{
			AppointmentID: id,
			Reason:        assignReason,
			OperatorID:    app.OperatorID,
		}
		if assignMechanic != "" {
			mechanicID, err := cli.ParseID(assignMechanic, "mechanic")
			if err != nil {
				return err
			}
			assignCmd.MechanicID = &mechanicID
		}
		if assignAt != "" {
			at, err := cli.ParseInstant(assignAt, app.Location)
			if err != nil {
				return err
			}
			assignCmd.AssignedAt = &at
		}

		appt, err := app.Backend.SubmitAssignment(cmd.Context(), assignCmd)
		if err != nil {
			return fmt.Errorf("failed to assign appointment: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, appt)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Appointment %s %s for %s\n",
			cli.ShortID(appt.ID), appt.Status, cli.FormatInstant(appt.AssignedAt, app.Location))
		return nil
	},
}

func init() {
	assignCmd.Flags().StringVarP(&assignMechanic, "mechanic", "m", "", "mechanic ID")
	assignCmd.Flags().StringVar(&assignAt, "at", "", "slot start (YYYY-MM-DD HH:MM)")
	assignCmd.Flags().StringVarP(&assignReason, "reason", "r", "", "why a confirmed appointment is moved")
}
