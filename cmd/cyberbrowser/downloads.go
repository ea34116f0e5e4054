package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyberbrowser/cyberbrowser/internal/config"
	"github.com/cyberbrowser/cyberbrowser/internal/storage"
)

// NewDownloadsCmd creates the downloads command.
func NewDownloadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downloads",
		Short: "List recorded downloads",
		Long: `Downloads lists the entries in the downloads ledger, newest first.
The ledger records downloads started through the browser; clear_on_exit
wipes it when the browser closes.`,
		RunE: runDownloadsCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of entries to show (0 for all)")
	cmd.Flags().String("data-dir", "",
		"Data directory containing the ledger (default: XDG data directory)")

	return cmd
}

// runDownloadsCmd executes the downloads command.
func runDownloadsCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = config.XDGDataDir()
	}

	ledger, err := storage.Open(dataDir, storage.Options{CreateIfNotExists: false})
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No downloads recorded yet.")
		return nil
	}
	defer ledger.Close()

	downloads, err := ledger.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to read downloads ledger: %w", err)
	}
	if len(downloads) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No downloads recorded yet.")
		return nil
	}

	for _, d := range downloads {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n    %s\n",
			d.StartedAt.Local().Format("2006-01-02 15:04"),
			filepath.Join(d.Dir, d.Filename),
			d.URL,
		)
	}
	return nil
}
