package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyberbrowser/cyberbrowser/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a settings file with default values",
		Long: `Init writes a settings.json with the default configuration so the
privacy toggles can be reviewed and edited before the first launch.
Without -o the file is created in the XDG config directory.

Examples:
  # Create the default settings file
  cyberbrowser init

  # Create a settings file at a specific path
  cyberbrowser init -o ./settings.json

  # Overwrite an existing file
  cyberbrowser init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output path for the settings file (default: XDG config directory)")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing settings file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = config.DefaultSettingsPath()
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("settings file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	store := config.NewFileStore(outputPath)
	if err := store.Save(config.DefaultSettings()); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created settings file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Privacy toggles (JavaScript, cookies, images, popups)")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Search engine and homepage")
	fmt.Fprintln(cmd.OutOrStdout(), "  - tor_dir, the directory of your Tor installation")

	return nil
}
