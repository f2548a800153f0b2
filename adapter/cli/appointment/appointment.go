package appointment

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
)

// Cmd is the appointment command group
var Cmd = &cobra.Command{
	Use:     "appointment",
	Aliases: []string{"appt"},
	Short:   "Manage workshop appointments",
	Long: `Register appointment requests, confirm them onto a mechanic's agenda,
reschedule or cancel them, and review their history.`,
}

func init() {
	Cmd.AddCommand(requestCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(slotsCmd)
	Cmd.AddCommand(assignCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(historyCmd)
	Cmd.AddCommand(towCmd)
}

func getStatusIcon(status string) string {
	switch status {
	case "Confirmado":
		return "[>]"
	case "Finalizado":
		return "[x]"
	case "Cancelado":
		return "[-]"
	default:
		return "[ ]"
	}
}

// printAppointment writes the detail view of one appointment.
func printAppointment(w io.Writer, a *queries.AppointmentDTO, app *cli.App) {
	fmt.Fprintf(w, "%s %s  %s\n", getStatusIcon(a.Status), a.VehiclePlate, a.Status)
	fmt.Fprintf(w, "  ID:        %s\n", a.ID)
	fmt.Fprintf(w, "  Reason:    %s\n", a.ReasonForVisit)
	fmt.Fprintf(w, "  Requested: %s\n", cli.FormatInstant(a.RequestedAt, app.Location))
	fmt.Fprintf(w, "  Assigned:  %s\n", cli.FormatInstant(a.AssignedAt, app.Location))
	if a.AssignedMechanicID != nil {
		fmt.Fprintf(w, "  Mechanic:  %s\n", a.AssignedMechanicID)
	}
	if a.Maintenance {
		fmt.Fprintln(w, "  Maintenance visit")
	}
	if a.TowRequested {
		dispatched := "pending"
		if a.TowDispatched {
			dispatched = "dispatched"
		}
		fmt.Fprintf(w, "  Tow:       %s (%s)\n", a.TowAddress, dispatched)
	}
	if a.ReschedulingReason != "" {
		fmt.Fprintf(w, "  Rescheduled because: %s\n", a.ReschedulingReason)
	}
	if a.WorkOrderRef != "" {
		fmt.Fprintf(w, "  Work order: %s\n", a.WorkOrderRef)
	}
}
