// Command amongo joins a Hazel game server as a player and records what it
// observes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "amongo",
		Short: "Hazel game client and session recorder",
		Long: `amongo speaks the Hazel UDP protocol used by Among Us servers.

It can join a lobby by room code, spawn a player and record every spawn,
movement and player update it sees to a storage backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+configFileName)

	cmd.AddCommand(
		joinCmd(&configDir),
		codeCmd(),
		versionCmd(),
	)

	return cmd
}
