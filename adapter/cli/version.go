package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Mode    string `json:"mode,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version and backend mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{Version: Version, Commit: Commit, Built: BuildDate}
		if a := GetApp(); a != nil {
			info.Mode = "remote"
			if a.Health != nil {
				info.Mode = "local"
			}
		}

		if JSONOutput() {
			return PrintJSON(cmd, info)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "workshop %s\n", info.Version)
		fmt.Fprintf(out, "  commit: %s\n", info.Commit)
		fmt.Fprintf(out, "  built:  %s\n", info.Built)
		if info.Mode != "" {
			fmt.Fprintf(out, "  mode:   %s\n", info.Mode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
