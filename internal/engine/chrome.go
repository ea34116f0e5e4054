package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// DownloadFunc is invoked when the engine begins a download.
// It runs on the engine's event goroutine; implementations must not block.
type DownloadFunc func(url, filename string)

// Chrome drives a Chrome/Chromium process over the DevTools protocol.
//
// Design decision: we launch a dedicated browser process with an ephemeral
// user data directory instead of attaching to the user's everyday Chrome
// profile. Tor routing must never mix with a profile that already carries
// identifying cookies and cache, and an ephemeral directory makes
// clear-on-exit a plain RemoveAll.
type Chrome struct {
	headless    bool
	userDataDir string
	onDownload  DownloadFunc
	logger      *slog.Logger

	profile Profile

	// ctx is the tab context; valid between Start and Close.
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// ChromeOption configures a Chrome engine.
type ChromeOption func(*Chrome)

// WithHeadless runs the engine without a visible window.
func WithHeadless(headless bool) ChromeOption {
	return func(c *Chrome) { c.headless = headless }
}

// WithUserDataDir sets the engine's profile directory. Empty means a fresh
// directory under the OS temp dir.
func WithUserDataDir(dir string) ChromeOption {
	return func(c *Chrome) { c.userDataDir = dir }
}

// WithDownloadFunc registers a callback for download events.
func WithDownloadFunc(fn DownloadFunc) ChromeOption {
	return func(c *Chrome) { c.onDownload = fn }
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(logger *slog.Logger) ChromeOption {
	return func(c *Chrome) { c.logger = logger }
}

// NewChrome creates an unstarted Chrome engine.
func NewChrome(opts ...ChromeOption) *Chrome {
	c := &Chrome{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// UserDataDir returns the engine's profile directory. Empty until Start.
func (c *Chrome) UserDataDir() string { return c.userDataDir }

// Profile returns the profile the engine was started with, as later
// amended by ApplyProfile.
func (c *Chrome) Profile() Profile { return c.profile }

// allocatorOptions translates the profile into Chromium launch flags.
// Each toggle maps to exactly one flag.
func (c *Chrome) allocatorOptions(profile Profile) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", c.headless),
		chromedp.UserDataDir(c.userDataDir),
	)

	if profile.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(profile.ProxyURL))
	}
	if !profile.CookiesPersist {
		// Incognito keeps cookies in memory only; nothing reaches disk.
		opts = append(opts, chromedp.Flag("incognito", true))
	}
	if !profile.ImagesEnabled {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if profile.PopupsBlocked {
		opts = append(opts, chromedp.Flag("block-new-web-contents", true))
	}
	if !profile.NotificationsEnabled {
		opts = append(opts, chromedp.Flag("disable-notifications", true))
	}
	if !profile.SpellcheckEnabled {
		opts = append(opts, chromedp.Flag("disable-features", "SpellCheck"))
	}
	if profile.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(profile.UserAgent))
	}

	return opts
}

// Start launches the browser process with the given profile and waits for
// the DevTools connection to come up.
func (c *Chrome) Start(ctx context.Context, profile Profile) error {
	if c.ctx != nil {
		return errors.New("engine already started")
	}

	if c.userDataDir == "" {
		dir, err := os.MkdirTemp("", "cyberbrowser-profile-*")
		if err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
		c.userDataDir = dir
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions(profile)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run starts the process and establishes the CDP session.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return fmt.Errorf("failed to start rendering engine: %w", err)
	}

	c.ctx = tabCtx
	c.cancelTab = cancelTab
	c.cancelAlloc = cancelAlloc
	c.profile = profile

	if err := c.configureDownloads(profile); err != nil {
		_ = c.Close()
		return err
	}

	if err := c.ApplyProfile(ctx, profile); err != nil {
		_ = c.Close()
		return err
	}

	c.logger.Info("rendering engine started",
		"headless", c.headless,
		"proxy", profile.ProxyURL,
		"userDataDir", c.userDataDir,
	)
	return nil
}

// configureDownloads points the engine's downloads at the profile's
// directory and subscribes to download events for the ledger callback.
func (c *Chrome) configureDownloads(profile Profile) error {
	if profile.DownloadDir == "" {
		return nil
	}
	if err := os.MkdirAll(profile.DownloadDir, 0750); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	action := browser.
		SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
		WithDownloadPath(profile.DownloadDir).
		WithEventsEnabled(true)
	if err := chromedp.Run(c.ctx, action); err != nil {
		return fmt.Errorf("failed to configure downloads: %w", err)
	}

	if c.onDownload != nil {
		chromedp.ListenTarget(c.ctx, func(ev interface{}) {
			if e, ok := ev.(*browser.EventDownloadWillBegin); ok {
				c.onDownload(e.URL, e.SuggestedFilename)
			}
		})
	}
	return nil
}

// run executes CDP actions on the tab context while honoring the caller's
// cancellation: the actions abort when either context ends, but only the
// derived context is cancelled, never the tab itself.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeCancel(ctx, c.ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeCancel derives a context from tabCtx (keeping its values, which
// carry the CDP session) that is additionally cancelled when callerCtx
// ends.
func mergeCancel(callerCtx, tabCtx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(tabCtx)
	stop := context.AfterFunc(callerCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// ApplyProfile re-applies the runtime-applicable profile attributes:
// script execution, zoom, and user agent. Flag-level attributes in the
// given profile must match the running ones; the shell enforces that via
// Profile.RequiresRestart.
func (c *Chrome) ApplyProfile(ctx context.Context, profile Profile) error {
	if c.ctx == nil {
		return errors.New("engine not started")
	}

	actions := []chromedp.Action{
		emulation.SetScriptExecutionDisabled(!profile.JavaScriptEnabled),
		emulation.SetPageScaleFactor(profile.ZoomFactor),
	}
	if profile.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(profile.UserAgent))
	}

	if err := c.run(ctx, actions...); err != nil {
		return fmt.Errorf("failed to apply profile: %w", err)
	}

	c.profile = profile
	return nil
}

// Navigate loads the URL in the active tab and re-applies the zoom factor.
// Chromium resets page scale on cross-document navigation, so zoom must be
// set again after every load or it silently drifts back to 100%. A hung
// load is abandoned when ctx ends.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if c.ctx == nil {
		return errors.New("engine not started")
	}

	err := c.run(ctx,
		chromedp.Navigate(url),
		emulation.SetPageScaleFactor(c.profile.ZoomFactor),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Close shuts the browser process down. Safe to call on an unstarted or
// already-closed engine.
func (c *Chrome) Close() error {
	if c.cancelTab != nil {
		c.cancelTab()
		c.cancelTab = nil
	}
	if c.cancelAlloc != nil {
		c.cancelAlloc()
		c.cancelAlloc = nil
	}
	c.ctx = nil
	return nil
}

// RemoveProfileDir deletes the engine's user data directory. Only valid
// after Close; used by clear-on-exit.
func (c *Chrome) RemoveProfileDir() error {
	if c.ctx != nil {
		return errors.New("engine still running")
	}
	if c.userDataDir == "" {
		return nil
	}
	// Refuse to remove anything that does not look like a profile dir we
	// created or were explicitly given.
	if c.userDataDir == string(filepath.Separator) || c.userDataDir == "." {
		return fmt.Errorf("refusing to remove suspicious profile dir %q", c.userDataDir)
	}
	return os.RemoveAll(c.userDataDir)
}
