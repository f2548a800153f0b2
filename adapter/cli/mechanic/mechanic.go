package mechanic

import (
	"github.com/spf13/cobra"
)

// Cmd is the mechanic command group
var Cmd = &cobra.Command{
	Use:   "mechanic",
	Short: "Manage the mechanic directory",
	Long: `Add mechanics, list who can take appointments, and take mechanics
out of or back into rotation.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(deactivateCmd)
	Cmd.AddCommand(activateCmd)
}
