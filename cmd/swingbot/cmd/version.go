package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version, overridable at build time with
// -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the swingbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("swingbot %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
