package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
)

var showCmd = &cobra.Command{
	Use:   "show [appointment-id]",
	Short: "Show an appointment and the mechanics it can be assigned to",
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

		actx, err := app.Backend.LoadContext(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load appointment: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, actx)
		}

		out := cmd.OutOrStdout()
		printAppointment(out, &actx.Appointment, app)
		fmt.Fprintln(out)
		if len(actx.Mechanics) == 0 {
			fmt.Fprintln(out, "No eligible mechanics.")
			return nil
		}
		fmt.Fprintln(out, "Eligible mechanics:")
		for _, m := range actx.Mechanics {
			fmt.Fprintf(out, "  %s  %s\n", m.ID, m.Name)
		}
		return nil
	},
}
