package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cyberbrowser/cyberbrowser/internal/config"
	"github.com/cyberbrowser/cyberbrowser/internal/engine"
	"github.com/cyberbrowser/cyberbrowser/internal/storage"
	"github.com/cyberbrowser/cyberbrowser/internal/tor"
)

// ErrEmptyAddress is returned when the address-bar input resolves to nothing.
var ErrEmptyAddress = errors.New("empty address")

// selfTestTimeout bounds the optional Tor-routed connectivity check.
const selfTestTimeout = 30 * time.Second

// profileWiper is implemented by engines whose profile directory can be
// removed after Close. Used by clear-on-exit.
type profileWiper interface {
	RemoveProfileDir() error
}

// Shell is the application core: it loads and saves settings, starts and
// restarts the rendering engine, toggles the Tor session, and records
// downloads.
//
// Shell methods are not safe for concurrent use, with one exception:
// RecordDownload arrives on the engine's event goroutine while the command
// loop may be applying settings. Everything it needs is snapshotted under
// dlMu; the rest of the shell state belongs to the command loop alone.
type Shell struct {
	store    config.Store
	session  *tor.Session
	engine   engine.Engine
	ledger   *storage.Ledger
	logger   *slog.Logger
	settings *config.Settings

	// dlMu guards downloadDir, the only shell field read off the command
	// loop.
	dlMu        sync.Mutex
	downloadDir string

	// selfTestURL, when non-empty, is fetched through the Tor SOCKS proxy
	// after a successful enable to prove the circuit actually carries
	// traffic. Failures are logged, never fatal.
	selfTestURL string

	started bool
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithShellLogger sets the shell's logger.
func WithShellLogger(logger *slog.Logger) ShellOption {
	return func(s *Shell) { s.logger = logger }
}

// WithSelfTestURL enables a Tor-routed connectivity check against the
// given URL after Tor is enabled.
func WithSelfTestURL(url string) ShellOption {
	return func(s *Shell) { s.selfTestURL = url }
}

// NewShell wires the shell's collaborators together. Nothing is started
// until Start is called.
func NewShell(store config.Store, session *tor.Session, eng engine.Engine, ledger *storage.Ledger, opts ...ShellOption) *Shell {
	s := &Shell{
		store:   store,
		session: session,
		engine:  eng,
		ledger:  ledger,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Settings returns the shell's current settings.
func (s *Shell) Settings() *config.Settings {
	return s.settings
}

// TorState returns the Tor session's lifecycle state.
func (s *Shell) TorState() tor.State {
	return s.session.State()
}

// Start loads settings, configures the Tor launcher if a Tor directory is
// set, launches the rendering engine, and opens the homepage.
//
// A missing or broken Tor directory does not prevent startup: the session
// simply stays NotConfigured and the Tor toggle reports that.
func (s *Shell) Start(ctx context.Context) error {
	if s.started {
		return errors.New("shell already started")
	}

	s.settings = s.store.Load()
	s.setDownloadDir(s.settings.DownloadDir)

	if s.settings.TorDir != "" {
		if err := s.session.ConfigureTorPath(s.settings.TorDir); err != nil {
			s.logger.Warn("tor directory from settings is unusable",
				"dir", s.settings.TorDir, "error", err)
		}
	}

	profile := engine.ProfileFromSettings(s.settings)
	if err := s.engine.Start(ctx, profile); err != nil {
		return fmt.Errorf("failed to start browser shell: %w", err)
	}
	s.started = true

	if err := s.engine.Navigate(ctx, s.settings.Homepage); err != nil {
		s.logger.Warn("failed to open homepage", "url", s.settings.Homepage, "error", err)
	}
	return nil
}

// Navigate resolves address-bar input and loads it in the engine.
func (s *Shell) Navigate(ctx context.Context, input string) error {
	target := Resolve(input, s.settings.SearchEngine)
	if target == "" {
		return ErrEmptyAddress
	}

	s.logger.Debug("navigating", "url", target)
	return s.engine.Navigate(ctx, target)
}

// EnableTor starts the Tor daemon, waits for readiness, and restarts the
// rendering engine routed through the SOCKS proxy with persistent cookies
// disabled. On any failure the engine is restored to direct browsing.
func (s *Shell) EnableTor(ctx context.Context) error {
	if err := s.session.Enable(ctx); err != nil {
		return err
	}

	profile := engine.ProfileFromSettings(s.settings).WithTorProxy(s.session.SocksAddr())
	if err := s.restartEngine(ctx, profile); err != nil {
		// A proxied engine that failed to come up must not leave the
		// daemon running with nothing routed through it.
		_ = s.session.Disable(ctx)
		return fmt.Errorf("failed to restart engine with tor routing: %w", err)
	}

	s.selfTest(ctx)

	s.logger.Info("tor routing active", "socksAddr", s.session.SocksAddr())
	return nil
}

// DisableTor stops the Tor daemon and restarts the engine for direct
// browsing. The direct profile is rebuilt from settings, so cookie
// persistence returns to whatever the user configured.
func (s *Shell) DisableTor(ctx context.Context) error {
	if err := s.session.Disable(ctx); err != nil {
		return err
	}

	profile := engine.ProfileFromSettings(s.settings)
	if err := s.restartEngine(ctx, profile); err != nil {
		return fmt.Errorf("failed to restart engine for direct browsing: %w", err)
	}

	s.logger.Info("tor routing disabled")
	return nil
}

// ApplySettings persists the new settings and applies them to the running
// engine. Applying is idempotent: the profile is rebuilt from settings
// every time, so applying the same settings twice leaves the engine in
// the same state, zoom included.
//
// Launch-flag changes (images, popups, notifications, spellcheck, cookies,
// download directory) restart the engine; runtime changes (zoom, scripts,
// user agent) are applied live.
func (s *Shell) ApplySettings(ctx context.Context, next *config.Settings) error {
	next.Normalize()

	if err := s.store.Save(next); err != nil {
		// Persisting failed but the user still expects the toggles to take
		// effect for this run.
		s.logger.Warn("failed to save settings", "error", err)
	}
	s.settings = next
	s.setDownloadDir(next.DownloadDir)

	profile := engine.ProfileFromSettings(next)
	if s.session.State() == tor.StateRunning {
		profile = profile.WithTorProxy(s.session.SocksAddr())
	}

	if s.engine.Profile().RequiresRestart(profile) {
		return s.restartEngine(ctx, profile)
	}
	return s.engine.ApplyProfile(ctx, profile)
}

// setDownloadDir publishes the directory RecordDownload stamps on ledger
// entries. Called from the command loop whenever settings change.
func (s *Shell) setDownloadDir(dir string) {
	s.dlMu.Lock()
	s.downloadDir = dir
	s.dlMu.Unlock()
}

// RecordDownload appends a download to the ledger. It is safe to call
// from the engine's event goroutine: the directory is read from the
// guarded snapshot, not from the settings the command loop mutates, and
// the write happens asynchronously.
func (s *Shell) RecordDownload(url, filename string) {
	s.dlMu.Lock()
	dir := s.downloadDir
	s.dlMu.Unlock()

	d := storage.Download{
		URL:      url,
		Filename: filename,
		Dir:      dir,
	}

	go func() {
		if _, err := s.ledger.Record(context.Background(), d); err != nil {
			s.logger.Warn("failed to record download", "filename", filename, "error", err)
		}
	}()

	s.logger.Info("download started", "filename", filename)
}

// Downloads returns the most recent ledger entries, newest first.
func (s *Shell) Downloads(ctx context.Context, limit int) ([]storage.Download, error) {
	return s.ledger.List(ctx, limit)
}

// Close shuts everything down in dependency order: Tor first so no proxied
// engine outlives its proxy, then the engine, then clear-on-exit wipes the
// ledger and the profile directory.
func (s *Shell) Close(ctx context.Context) error {
	var errs []error

	if s.session.State() == tor.StateRunning || s.session.State() == tor.StateStarting {
		if err := s.session.Disable(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop tor: %w", err))
		}
	}

	if err := s.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close engine: %w", err))
	}

	if s.settings != nil && s.settings.ClearOnExit {
		if err := s.ledger.Clear(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to clear downloads ledger: %w", err))
		}
		if wiper, ok := s.engine.(profileWiper); ok {
			if err := wiper.RemoveProfileDir(); err != nil {
				errs = append(errs, fmt.Errorf("failed to remove profile directory: %w", err))
			}
		}
		s.logger.Info("cleared browsing data on exit")
	}

	if err := s.ledger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close downloads ledger: %w", err))
	}

	return errors.Join(errs...)
}

// restartEngine tears the engine down and brings it back with the given
// profile, then reopens the homepage so the user is not staring at a dead
// tab.
func (s *Shell) restartEngine(ctx context.Context, profile engine.Profile) error {
	if err := s.engine.Close(); err != nil {
		return fmt.Errorf("failed to stop engine for restart: %w", err)
	}
	if err := s.engine.Start(ctx, profile); err != nil {
		return err
	}

	if err := s.engine.Navigate(ctx, s.settings.Homepage); err != nil {
		s.logger.Warn("failed to reopen homepage after restart",
			"url", s.settings.Homepage, "error", err)
	}
	return nil
}

// selfTest fetches the configured URL through the Tor SOCKS proxy to
// verify the circuit end to end. Best effort only.
func (s *Shell) selfTest(ctx context.Context) {
	if s.selfTestURL == "" {
		return
	}

	client, err := s.session.Client(selfTestTimeout)
	if err != nil {
		s.logger.Warn("tor self-test skipped", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.selfTestURL, nil)
	if err != nil {
		s.logger.Warn("tor self-test skipped", "error", err)
		return
	}

	resp, err := client.HTTPClient().Do(req)
	if err != nil {
		s.logger.Warn("tor self-test failed", "url", s.selfTestURL, "error", err)
		return
	}
	_ = resp.Body.Close()

	s.logger.Info("tor self-test succeeded", "url", s.selfTestURL, "status", resp.StatusCode)
}
