package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
)

var (
	plate       string
	driver      string
	visitReason string
	tow         bool
	towAddress  string
	maintenance bool
	damageImage string
	requestedAt string
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Register a new appointment request",
	Long: `Register a vehicle for a workshop visit. The appointment starts as
Programado until an operator confirms it onto a mechanic's agenda.

Examples:
  workshop appointment request --plate HKRT21 --reason "brake noise"
  workshop appointment request --plate JJPX90 --reason "service" --maintenance --at "2026-03-02 10:00"
  workshop appointment request --plate BBCL44 --reason "no start" --tow --tow-address "Av. Matta 1200"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		requestCmd := commands.RequestAppointmentCommand{
			OperatorID:     app.OperatorID,
			VehiclePlate:   plate,
			ReasonForVisit: visitReason,
			TowRequested:   tow,
			TowAddress:     towAddress,
			Maintenance:    maintenance,
			DamageImageRef: damageImage,
		}
		if driver != "" {
			id, err := cli.ParseID(driver, "driver")
			if err != nil {
				return err
			}
			requestCmd.DriverID = id
		}
		if requestedAt != "" {
			at, err := cli.ParseInstant(requestedAt, app.Location)
			if err != nil {
				return err
			}
			requestCmd.RequestedAt = &at
		}

		appt, err := app.Backend.RequestAppointment(cmd.Context(), requestCmd)
		if err != nil {
			return fmt.Errorf("failed to request appointment: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, appt)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Appointment requested: %s\n", appt.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  vehicle: %s\n", appt.VehiclePlate)
		return nil
	},
}

func init() {
	requestCmd.Flags().StringVarP(&plate, "plate", "p", "", "vehicle licence plate")
	requestCmd.Flags().StringVar(&driver, "driver", "", "driver ID")
	requestCmd.Flags().StringVarP(&visitReason, "reason", "r", "", "reason for the visit")
	requestCmd.Flags().BoolVar(&tow, "tow", false, "the vehicle needs a tow truck")
	requestCmd.Flags().StringVar(&towAddress, "tow-address", "", "where the tow truck picks the vehicle up")
	requestCmd.Flags().BoolVar(&maintenance, "maintenance", false, "scheduled maintenance visit")
	requestCmd.Flags().StringVar(&damageImage, "damage-image", "", "reference to a photo of the damage")
	requestCmd.Flags().StringVar(&requestedAt, "at", "", "preferred time (YYYY-MM-DD HH:MM)")

	_ = requestCmd.MarkFlagRequired("plate")
}
