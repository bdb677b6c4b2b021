// Package commands implements the unfoundfs CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "unfoundfs",
	Short: "unfoundfs - page-cached VFS engine with file event notification",
	Long: `unfoundfs augments a flat byte store with a bounded page cache
(LRU or adaptive replacement, with sequential readahead) and a lossy
bounded queue of file change events, both driven synchronously from
the open/read/write/close path.

Use "unfoundfs [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrf("Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/unfoundfs/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(shellCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
