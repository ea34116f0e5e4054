package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberbrowser/cyberbrowser/internal/browser"
	"github.com/cyberbrowser/cyberbrowser/internal/config"
	"github.com/cyberbrowser/cyberbrowser/internal/engine"
	"github.com/cyberbrowser/cyberbrowser/internal/log"
	"github.com/cyberbrowser/cyberbrowser/internal/storage"
	"github.com/cyberbrowser/cyberbrowser/internal/tor"
)

// embeddedBootstrapTimeout covers a fresh consensus download, which the
// embedded daemon performs on every start.
const embeddedBootstrapTimeout = 3 * time.Minute

// NewBrowseCmd creates the browse command.
func NewBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [url]",
		Short: "Open the browser, optionally at a URL",
		Long: `Browse launches the rendering engine with the privacy toggles from the
settings file applied. The optional argument is resolved like address-bar
input: URLs load directly, anything else becomes a search query.

The command runs until interrupted (Ctrl-C); on exit the Tor daemon is
stopped and, if clear_on_exit is set, browsing data is wiped.

Examples:
  # Open the configured homepage
  cyberbrowser browse

  # Open a specific page
  cyberbrowser browse example.org

  # Route everything through Tor from the start
  cyberbrowser browse --tor

  # No local Tor installation: bootstrap an embedded daemon
  cyberbrowser browse --tor --embedded-tor

  # Use a settings file other than the default
  cyberbrowser browse -s /path/to/settings.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBrowseCmd,
	}

	cmd.Flags().StringP("settings", "s", "",
		"Settings file path (default: XDG config directory)")
	cmd.Flags().Bool("headless", false,
		"Run the rendering engine without a visible window")
	cmd.Flags().BoolP("tor", "t", false,
		"Enable Tor routing at startup")
	cmd.Flags().Bool("embedded-tor", false,
		"Use an embedded Tor daemon instead of a local installation")
	cmd.Flags().String("self-test", "",
		"URL fetched through Tor after enabling it, to verify the circuit")
	cmd.Flags().DurationP("tor-timeout", "T", tor.DefaultStartupTimeout,
		"Timeout for Tor startup")

	return cmd
}

// runBrowseCmd executes the browse command.
func runBrowseCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseBrowseFlags(cmd)
	if err != nil {
		return err
	}

	logger := log.NewLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	// Cancel on interrupt so Tor and the engine shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, closing...")
		cancel()
	}()

	return runBrowse(ctx, cmd, args, opts, logger)
}

// browseOptions holds the parsed browse flags.
type browseOptions struct {
	settingsPath string
	headless     bool
	enableTor    bool
	embeddedTor  bool
	selfTestURL  string
	torTimeout   time.Duration
}

// parseBrowseFlags reads the browse command's flags.
func parseBrowseFlags(cmd *cobra.Command) (*browseOptions, error) {
	opts := &browseOptions{}

	var err error
	if opts.settingsPath, err = cmd.Flags().GetString("settings"); err != nil {
		return nil, err
	}
	if opts.headless, err = cmd.Flags().GetBool("headless"); err != nil {
		return nil, err
	}
	if opts.enableTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return nil, err
	}
	if opts.embeddedTor, err = cmd.Flags().GetBool("embedded-tor"); err != nil {
		return nil, err
	}
	if opts.selfTestURL, err = cmd.Flags().GetString("self-test"); err != nil {
		return nil, err
	}
	if opts.torTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	return opts, nil
}

// runBrowse wires the shell together and runs it until the context ends.
func runBrowse(ctx context.Context, cmd *cobra.Command, args []string, opts *browseOptions, logger *slog.Logger) error {
	store := config.NewFileStore(opts.settingsPath, config.WithStoreLogger(logger))

	sessionOpts := []tor.Option{
		tor.WithLogger(logger),
		tor.WithStartupTimeout(opts.torTimeout),
	}
	if opts.embeddedTor {
		sessionOpts = append(sessionOpts, tor.WithLauncher(
			tor.NewEmbeddedLauncher(tor.WithBootstrapTimeout(embeddedBootstrapTimeout)),
		))
	}
	session := tor.NewSession(sessionOpts...)

	ledger, err := storage.Open(config.XDGDataDir(), storage.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open downloads ledger: %w", err)
	}

	// The download callback closes over the shell variable: events only
	// fire after Start, by which point sh is assigned.
	var sh *browser.Shell
	eng := engine.NewChrome(
		engine.WithHeadless(opts.headless),
		engine.WithEngineLogger(logger),
		engine.WithDownloadFunc(func(url, filename string) {
			sh.RecordDownload(url, filename)
		}),
	)

	shellOpts := []browser.ShellOption{browser.WithShellLogger(logger)}
	if opts.selfTestURL != "" {
		shellOpts = append(shellOpts, browser.WithSelfTestURL(opts.selfTestURL))
	}
	sh = browser.NewShell(store, session, eng, ledger, shellOpts...)

	if err := sh.Start(ctx); err != nil {
		_ = ledger.Close()
		return err
	}

	if opts.enableTor {
		fmt.Fprintln(cmd.OutOrStdout(), "Starting Tor, this may take a while...")
		if err := sh.EnableTor(ctx); err != nil {
			// Tor failure is not fatal: the user keeps direct browsing and
			// can retry after fixing the installation.
			fmt.Fprintf(cmd.ErrOrStderr(), "Tor could not be enabled: %v\n", err)
			logger.Warn("tor enable failed", "error", err)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Tor routing active.")
		}
	}

	if len(args) == 1 {
		if err := sh.Navigate(ctx, args[0]); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open %q: %v\n", args[0], err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Browser running. Press Ctrl-C to exit.")
	<-ctx.Done()

	// The signal context is already cancelled; shutdown gets its own.
	return sh.Close(context.Background())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
