package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/dogfight/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "dogfight", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
