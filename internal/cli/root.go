// Package cli implements the looper command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Config  string // path to the YAML configuration file
}

// NewRootCommand creates the root command for the looper CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "looper",
		Short: "Real-time MIDI looper",
		Long: `A real-time MIDI looper: live input is echoed to the output, recorded
at its position in a fixed-length loop, and replayed on every later pass.`,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML configuration file")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPortsCommand(opts))

	return cmd
}
