package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resolver",
	Short: "Cross-chain escrow settlement resolver",
	Long: `resolver fills cross-chain swap orders by deploying hashlocked escrows
on the source and destination chains and settling them once the maker
reveals the secret.

Examples:
  resolver serve
  resolver serve --listen :9090`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
}
