package appointment

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
)

var (
	status         string
	filterMechanic string
	fromDay        string
	toDay          string
	limit          int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List appointments",
	Long: `List appointments with optional filters.

Filter Options:
  --status    Programado, Confirmado, Finalizado or Cancelado
  --mechanic  only appointments assigned to this mechanic
  --from      assigned on or after this day (YYYY-MM-DD)
  --to        assigned before this day (YYYY-MM-DD)

Examples:
  workshop appointment list
  workshop appointment list --status Confirmado --from 2026-03-02 --to 2026-03-07`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		query := queries.ListAppointmentsQuery{
			Status: status,
			Limit:  limit,
		}
		if filterMechanic != "" {
			if query.MechanicID, err = cli.ParseID(filterMechanic, "mechanic"); err != nil {
				return err
			}
		}
		if fromDay != "" {
			if query.From, err = cli.ParseDay(fromDay, app.Location); err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
		}
		if toDay != "" {
			if query.To, err = cli.ParseDay(toDay, app.Location); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
		}

		appointments, err := app.Backend.ListAppointments(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list appointments: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, appointments)
		}

		out := cmd.OutOrStdout()
		if len(appointments) == 0 {
			fmt.Fprintln(out, "No appointments found.")
			return nil
		}

		fmt.Fprintf(out, "Appointments (%d):\n", len(appointments))
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, a := range appointments {
			fmt.Fprintf(out, "%s %s %-10s %s\n",
				getStatusIcon(a.Status), cli.ShortID(a.ID), a.VehiclePlate, a.Status)
			fmt.Fprintf(out, "   %s\n", a.ReasonForVisit)
			if a.AssignedAt != nil {
				fmt.Fprintf(out, "   Assigned: %s\n", cli.FormatInstant(a.AssignedAt, app.Location))
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&status, "status", "s", "", "filter by status")
	listCmd.Flags().StringVarP(&filterMechanic, "mechanic", "m", "", "filter by assigned mechanic ID")
	listCmd.Flags().StringVar(&fromDay, "from", "", "assigned on or after day (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&toDay, "to", "", "assigned before day (YYYY-MM-DD)")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "max number of appointments to show (0 = default)")
}
