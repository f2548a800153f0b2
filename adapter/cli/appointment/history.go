package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
)

var historyCmd = &cobra.Command{
	Use:   "history [appointment-id]",
	Short: "Show the status history of an appointment",
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

		changes, err := app.Backend.History(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, changes)
		}

		out := cmd.OutOrStdout()
		for _, c := range changes {
			at := c.OccurredAt
			fmt.Fprintf(out, "%s  %-11s %s", cli.FormatInstant(&at, app.Location), c.Status, cli.ShortID(c.OperatorID))
			if c.Comment != "" {
				fmt.Fprintf(out, "  %s", c.Comment)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}
