package appointment

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/adapter/cli"
)

var slotsDay string

var slotsCmd = &cobra.Command{
	Use:   "slots [mechanic-id]",
	Short: "List the slots a mechanic can still take on a day",
	Long: `List the offerable slots for a mechanic on one day. Slots already
booked and slots inside the lead time are left out.

Examples:
  workshop appointment slots 6f1c2d9e-... --day 2026-03-02`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		mechanicID, err := cli.ParseID(args[0], "mechanic")
		if err != nil {
			return err
		}
		if slotsDay == "" {
			return fmt.Errorf("--day is required")
		}
		day, err := cli.ParseDay(slotsDay, app.Location)
		if err != nil {
			return err
		}

		slots, err := app.Backend.ListOfferableSlots(cmd.Context(), mechanicID, day)
		if err != nil {
			return fmt.Errorf("failed to list slots: %w", err)
		}

		if cli.JSONOutput() {
			return cli.PrintJSON(cmd, slots)
		}

		out := cmd.OutOrStdout()
		if len(slots) == 0 {
			fmt.Fprintln(out, "No free slots.")
			return nil
		}
		fmt.Fprintf(out, "Free slots on %s:\n", day.Format("Mon 2006-01-02"))
		for _, s := range slots {
			fmt.Fprintf(out, "  %s\n", s.In(app.Location).Format("15:04"))
		}
		return nil
	},
}

func init() {
	slotsCmd.Flags().StringVarP(&slotsDay, "day", "d", "", "day to inspect (YYYY-MM-DD)")
}
