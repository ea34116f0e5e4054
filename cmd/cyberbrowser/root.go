// Package main provides the entry point for the CyberBrowser CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for CyberBrowser.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cyberbrowser",
		Short: "Privacy-focused browser with one-toggle Tor routing",
		Long: `CyberBrowser is a privacy-focused desktop browser shell.
It drives a Chromium rendering engine, applies privacy toggles from a
plain JSON settings file, and can route all traffic through Tor.

Tor requires either a local Tor installation (set tor_dir in settings)
or the --embedded-tor flag, which bootstraps a managed daemon.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewBrowseCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewDownloadsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
