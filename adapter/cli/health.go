package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fleetworks/workshop/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if app.Health == nil {
			if _, err := app.Backend.ListMechanics(cmd.Context()); err != nil {
				return fmt.Errorf("backend unreachable: %w", err)
			}
			fmt.Fprintln(out, "ok (remote)")
			return nil
		}

		overall := app.Health.GetOverallHealth(cmd.Context())
		if JSONOutput() {
			return PrintJSON(cmd, overall)
		}
		fmt.Fprintln(out, overall.Status)

		names := make([]string, 0, len(overall.Checks))
		for name := range overall.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check := overall.Checks[name]
			fmt.Fprintf(out, "  %-16s %s", name, check.Status)
			if check.Message != "" {
				fmt.Fprintf(out, "  %s", check.Message)
			}
			fmt.Fprintln(out)
		}
		if overall.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
