package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/dogfight/internal/ui"
	"github.com/BioHazard786/dogfight/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dogfight",
	Short: "Signaling relay for Pocket Dogfight multiplayer",
	Long: `dogfight runs the WebSocket signaling relay that lets Pocket Dogfight players
find each other by room code and exchange WebRTC offers, answers and ICE
candidates. Game traffic itself flows peer to peer and never touches the relay.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
