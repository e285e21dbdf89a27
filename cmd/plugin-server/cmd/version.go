package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmitchellscott/stationmaster-plugins/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plugin-server", version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
