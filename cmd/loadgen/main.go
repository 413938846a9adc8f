// Package main is the entry point for the hiscore load generator.
//
// Usage:
//
//	loadgen run --url http://localhost:4000 --players 100 --submissions 5000
//	loadgen version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Load generator for the hiscore leaderboard",
	Long: `loadgen submits scores to a running hiscore service from many
concurrent workers, then checks that the leaderboard lists every player
once with the highest score it was sent, in descending order.

Example:
  loadgen run --url http://localhost:4000 --players 50 --submissions 2000 --stream`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "loadgen %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
