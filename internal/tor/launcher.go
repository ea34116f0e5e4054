package tor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// Default daemon addresses. Tor's stock SocksPort and ControlPort.
const (
	DefaultSocksAddr   = "127.0.0.1:9050"
	DefaultControlAddr = "127.0.0.1:9051"
)

// DefaultStopGracePeriod is how long Stop waits after the graceful signal
// before force-killing the process. Tor normally shuts down within a second
// or two; 10 seconds is generous without making Disable feel hung.
const DefaultStopGracePeriod = 10 * time.Second

// Launcher starts a Tor daemon and hands back a handle to it.
//
// Design decision: the Session depends on this interface rather than on
// os/exec directly so the state machine can be tested with a fake process
// and so the embedded tornago daemon can sit behind the same seam.
type Launcher interface {
	Start(ctx context.Context) (Process, error)
}

// Process is a handle to a running Tor daemon.
type Process interface {
	// SocksAddr returns the SOCKS5 proxy address in "host:port" format.
	SocksAddr() string

	// ControlAddr returns the control port address in "host:port" format.
	ControlAddr() string

	// Done is closed when the process exits for any reason.
	Done() <-chan struct{}

	// Stop terminates the process: graceful signal first, forced kill
	// after a grace period. It is safe to call more than once.
	Stop(ctx context.Context) error
}

// FindTorExecutable locates the Tor binary at the given path.
// The path may be the executable itself or a directory containing
// "tor" (or "tor.exe" on Windows). It returns the resolved executable
// path, or ErrTorNotFound.
func FindTorExecutable(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrTorNotFound, path)
	}

	if !info.IsDir() {
		return path, nil
	}

	name := "tor"
	if runtime.GOOS == "windows" {
		name = "tor.exe"
	}

	candidate := filepath.Join(path, name)
	if info, err := os.Stat(candidate); err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: no %s in %s", ErrTorNotFound, name, path)
	}
	return candidate, nil
}

// ExecLauncher launches an external Tor binary as a child process.
type ExecLauncher struct {
	// binPath is the resolved path to the Tor executable.
	binPath string

	// socksAddr and controlAddr are passed to Tor as SocksPort/ControlPort.
	socksAddr   string
	controlAddr string

	// dataDir is Tor's DataDirectory. Each browser profile gets its own so
	// a stale lock from a crashed run never blocks a system Tor install.
	dataDir string

	// gracePeriod bounds the wait between the graceful signal and SIGKILL.
	gracePeriod time.Duration

	logger *slog.Logger
}

// ExecLauncherOption configures an ExecLauncher.
type ExecLauncherOption func(*ExecLauncher)

// WithSocksAddr overrides the SOCKS listen address.
func WithSocksAddr(addr string) ExecLauncherOption {
	return func(l *ExecLauncher) { l.socksAddr = addr }
}

// WithControlAddr overrides the control port listen address.
func WithControlAddr(addr string) ExecLauncherOption {
	return func(l *ExecLauncher) { l.controlAddr = addr }
}

// WithDataDir overrides Tor's data directory.
func WithDataDir(dir string) ExecLauncherOption {
	return func(l *ExecLauncher) { l.dataDir = dir }
}

// WithStopGracePeriod overrides the graceful-shutdown grace period.
func WithStopGracePeriod(d time.Duration) ExecLauncherOption {
	return func(l *ExecLauncher) { l.gracePeriod = d }
}

// WithLauncherLogger sets the logger for process lifecycle events.
func WithLauncherLogger(logger *slog.Logger) ExecLauncherOption {
	return func(l *ExecLauncher) { l.logger = logger }
}

// NewExecLauncher validates that a Tor executable exists at path and
// returns a launcher for it. It returns ErrTorNotFound if the executable
// is missing; no process is started.
func NewExecLauncher(path string, opts ...ExecLauncherOption) (*ExecLauncher, error) {
	binPath, err := FindTorExecutable(path)
	if err != nil {
		return nil, err
	}

	l := &ExecLauncher{
		binPath:     binPath,
		socksAddr:   DefaultSocksAddr,
		controlAddr: DefaultControlAddr,
		gracePeriod: DefaultStopGracePeriod,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Start spawns the Tor daemon. It returns as soon as the process is
// running; port readiness is the caller's concern (see waitReady).
func (l *ExecLauncher) Start(ctx context.Context) (Process, error) {
	dataDir := l.dataDir
	if dataDir == "" {
		dataDir = filepath.Join(os.TempDir(), "cyberbrowser-tor")
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	// Tor accepts full "addr:port" values for SocksPort and ControlPort,
	// which keeps the listeners bound to loopback.
	//nolint:gosec // The binary path was validated in NewExecLauncher.
	cmd := exec.Command(l.binPath,
		"--SocksPort", l.socksAddr,
		"--ControlPort", l.controlAddr,
		"--DataDirectory", dataDir,
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	l.logger.Info("tor process started",
		"pid", cmd.Process.Pid,
		"socksAddr", l.socksAddr,
		"controlAddr", l.controlAddr,
	)

	p := &execProcess{
		cmd:         cmd,
		socksAddr:   l.socksAddr,
		controlAddr: l.controlAddr,
		gracePeriod: l.gracePeriod,
		done:        make(chan struct{}),
		logger:      l.logger,
	}

	// Reap the child as soon as it exits so it never lingers as a zombie
	// and so Done() observers learn about crashes promptly.
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	// If the caller's context ends before Stop is called, make sure the
	// child does not outlive the application.
	go func() {
		select {
		case <-ctx.Done():
			_ = p.Stop(context.Background())
		case <-p.done:
		}
	}()

	return p, nil
}

// execProcess is the Process implementation for an external Tor binary.
type execProcess struct {
	cmd         *exec.Cmd
	socksAddr   string
	controlAddr string
	gracePeriod time.Duration
	done        chan struct{}
	waitErr     error
	logger      *slog.Logger
}

// SocksAddr returns the SOCKS5 proxy address.
func (p *execProcess) SocksAddr() string { return p.socksAddr }

// ControlAddr returns the control port address.
func (p *execProcess) ControlAddr() string { return p.controlAddr }

// Done is closed when the process exits.
func (p *execProcess) Done() <-chan struct{} { return p.done }

// Stop terminates the Tor process. It sends an interrupt first so Tor can
// close circuits and flush its state, then kills after the grace period.
// Returns once the process has exited or the context is cancelled.
func (p *execProcess) Stop(ctx context.Context) error {
	select {
	case <-p.done:
		// Already exited.
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		// Signal delivery can fail on platforms without interrupt support
		// or when the process is already gone. Fall through to the kill.
		p.logger.Debug("graceful signal failed, will force kill", "error", err)
	}

	grace := time.NewTimer(p.gracePeriod)
	defer grace.Stop()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		_ = p.cmd.Process.Kill()
		<-p.done
		return ctx.Err()
	case <-grace.C:
		p.logger.Warn("tor did not exit within grace period, killing",
			"pid", p.cmd.Process.Pid)
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill tor process: %w", err)
		}
		<-p.done
		return nil
	}
}
