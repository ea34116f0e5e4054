package tor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Session owns at most one Tor daemon and tracks its lifecycle state.
//
// All operations are safe for concurrent use, but the expected caller is a
// single UI loop: the mutex exists so the readiness poll and the process
// exit watcher can update state without racing a user-initiated Disable,
// not to support parallel Enable calls.
//
// State is the only thing the UI reads; everything else (the process
// handle, the poll cancellation) is private to the session.
type Session struct {
	mu sync.Mutex

	state    State
	launcher Launcher
	proc     Process

	// socksAddr/controlAddr are captured from the process on Running and
	// cleared on Stopped so a stale address can never be applied.
	socksAddr   string
	controlAddr string

	// cancelStart aborts an in-flight readiness poll when the user
	// disables Tor mid-start.
	cancelStart context.CancelFunc

	// lastErr is the failure that moved the session to Failed.
	lastErr error

	startupTimeout time.Duration
	pollInterval   time.Duration
	logger         *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithStartupTimeout bounds how long Enable waits for port readiness.
func WithStartupTimeout(d time.Duration) Option {
	return func(s *Session) { s.startupTimeout = d }
}

// WithPollInterval sets the delay between readiness attempts.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.pollInterval = d }
}

// WithLogger sets the session's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithLauncher pre-configures a launcher and starts the session in the
// Stopped state. Used for the embedded daemon and for tests; interactive
// use goes through ConfigureTorPath instead.
func WithLauncher(l Launcher) Option {
	return func(s *Session) {
		s.launcher = l
		s.state = StateStopped
	}
}

// NewSession creates a session in the NotConfigured state (unless a
// launcher option says otherwise).
func NewSession(opts ...Option) *Session {
	s := &Session{
		state:          StateNotConfigured,
		startupTimeout: DefaultStartupTimeout,
		pollInterval:   DefaultPollInterval,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SocksAddr returns the SOCKS5 proxy address while Running, else "".
func (s *Session) SocksAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socksAddr
}

// ControlAddr returns the control port address while Running, else "".
func (s *Session) ControlAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlAddr
}

// LastErr returns the error that moved the session to Failed, or nil.
func (s *Session) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ConfigureTorPath validates that a Tor executable exists at path and
// prepares the session to launch it. On success the session moves from
// NotConfigured to Stopped. On failure the state is unchanged and the
// returned error wraps ErrTorNotFound.
//
// Reconfiguring is allowed from NotConfigured and Stopped; changing the
// path under a running daemon is not.
func (s *Session) ConfigureTorPath(path string, opts ...ExecLauncherOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotConfigured && s.state != StateStopped {
		return fmt.Errorf("cannot reconfigure tor path in state %q: %w", s.state, ErrNotStopped)
	}

	launcherOpts := append([]ExecLauncherOption{WithLauncherLogger(s.logger)}, opts...)
	launcher, err := NewExecLauncher(path, launcherOpts...)
	if err != nil {
		return err
	}

	s.launcher = launcher
	s.state = StateStopped
	s.logger.Info("tor path configured", "path", path)
	return nil
}

// Enable launches the Tor daemon and blocks until its SOCKS and control
// ports are reachable. Only valid from Stopped: any other state returns a
// state error and spawns nothing.
//
// On readiness the session is Running and SocksAddr reports where the
// engine's proxy should point. On timeout or crash the session is Failed;
// there is no automatic retry — the user re-triggers explicitly after
// acknowledging the failure.
//
// The wait is cancellable: cancelling ctx, or calling Disable from another
// goroutine, aborts the poll and stops the spawned process.
func (s *Session) Enable(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateNotConfigured {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	if s.state != StateStopped {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (current state: %s)", ErrNotStopped, st)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancelStart = cancel
	s.state = StateStarting
	s.lastErr = nil
	launcher := s.launcher
	s.mu.Unlock()

	defer cancel()

	// The daemon outlives the poll: pollCtx ends the moment Enable
	// returns, while the process must keep running until Disable or its
	// own exit. Only the readiness wait below is tied to pollCtx.
	proc, err := launcher.Start(context.WithoutCancel(ctx))
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrSpawn, err)
		s.fail(err)
		return err
	}

	s.logger.Info("waiting for tor to become ready",
		"socksAddr", proc.SocksAddr(),
		"controlAddr", proc.ControlAddr(),
		"timeout", s.startupTimeout,
	)

	if err := waitReady(pollCtx, proc, s.startupTimeout, s.pollInterval); err != nil {
		// The daemon may still be half-up; it must not outlive the failure.
		_ = proc.Stop(context.Background())

		s.mu.Lock()
		cancelled := s.state != StateStarting
		s.mu.Unlock()
		if cancelled {
			// Disable won the race; it already set the final state.
			return ErrStartCancelled
		}

		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.state != StateStarting {
		// Disabled between readiness and this point.
		s.mu.Unlock()
		_ = proc.Stop(context.Background())
		return ErrStartCancelled
	}
	s.proc = proc
	s.socksAddr = proc.SocksAddr()
	s.controlAddr = proc.ControlAddr()
	s.state = StateRunning
	s.mu.Unlock()

	go s.watch(proc)

	s.logger.Info("tor session running", "socksAddr", proc.SocksAddr())
	return nil
}

// Disable stops the Tor session. Valid from Running (terminates the
// daemon), Starting (cancels the readiness poll and stops the daemon),
// and Failed (clears the failure). From any other state it returns
// ErrNotRunning.
//
// When Disable returns, no Tor child process spawned by this session is
// still running.
func (s *Session) Disable(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case StateRunning:
		proc := s.proc
		s.proc = nil
		s.socksAddr = ""
		s.controlAddr = ""
		s.state = StateStopped
		s.mu.Unlock()

		s.logger.Info("stopping tor session")
		return proc.Stop(ctx)

	case StateStarting:
		// Flip the state first so the Enable goroutine knows it lost the
		// race, then cancel its poll. Enable stops the process itself.
		s.state = StateStopped
		cancel := s.cancelStart
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil

	case StateFailed:
		s.state = StateStopped
		s.lastErr = nil
		s.mu.Unlock()
		return nil

	default:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w (current state: %s)", ErrNotRunning, st)
	}
}

// Acknowledge clears a failure, moving Failed back to Stopped so the user
// can re-trigger Enable. A no-op in any other state.
func (s *Session) Acknowledge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFailed {
		s.state = StateStopped
		s.lastErr = nil
	}
}

// Client returns a SOCKS5 client for the running daemon.
func (s *Session) Client(timeout time.Duration) (*Client, error) {
	s.mu.Lock()
	addr := s.socksAddr
	st := s.state
	s.mu.Unlock()

	if st != StateRunning {
		return nil, fmt.Errorf("%w (current state: %s)", ErrNotRunning, st)
	}
	return NewClient(addr, timeout)
}

// fail records the error and moves the session to Failed.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFailed
	s.lastErr = err
	s.proc = nil
	s.socksAddr = ""
	s.controlAddr = ""
	s.logger.Warn("tor session failed", "error", err)
}

// watch observes the running process and moves the session to Stopped if
// the daemon exits on its own. The exit is surfaced through the state
// indicator, never as a crash of the application.
func (s *Session) watch(proc Process) {
	<-proc.Done()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Only react if this process is still the session's current one; a
	// normal Disable already cleared it.
	if s.proc != proc {
		return
	}

	s.proc = nil
	s.socksAddr = ""
	s.controlAddr = ""
	s.state = StateStopped
	s.logger.Warn("tor process exited unexpectedly")
}
