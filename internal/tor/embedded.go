package tor

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/tornago"
)

// EmbeddedLauncher runs a tornago-managed Tor daemon instead of a binary
// from the user's tor_dir. It exists for installations with no Tor package:
// the session's state machine is identical, only the process source differs.
//
// Note: the embedded daemon binds OS-assigned ports and bootstraps a fresh
// consensus, which can take 1-3 minutes on first start. Sessions using it
// should raise their startup timeout accordingly.
type EmbeddedLauncher struct {
	// bootstrapTimeout is the maximum time tornago waits for the daemon
	// to bootstrap before Start fails.
	bootstrapTimeout time.Duration
}

// EmbeddedOption configures an EmbeddedLauncher.
type EmbeddedOption func(*EmbeddedLauncher)

// WithBootstrapTimeout sets the maximum bootstrap wait.
func WithBootstrapTimeout(d time.Duration) EmbeddedOption {
	return func(l *EmbeddedLauncher) { l.bootstrapTimeout = d }
}

// NewEmbeddedLauncher creates a launcher for an embedded Tor daemon.
func NewEmbeddedLauncher(opts ...EmbeddedOption) *EmbeddedLauncher {
	l := &EmbeddedLauncher{
		bootstrapTimeout: 3 * time.Minute,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Start launches the embedded daemon and blocks until it has bootstrapped.
// Unlike ExecLauncher, the returned process is already listening, so the
// session's readiness poll succeeds on its first pass.
func (l *EmbeddedLauncher) Start(ctx context.Context) (Process, error) {
	// ":0" lets the OS pick free ports, so the embedded daemon never
	// collides with a system Tor on 9050/9051.
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(l.bootstrapTimeout),
	)
	if err != nil {
		return nil, err
	}

	proc, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		_ = proc.Stop()
		return nil, ctx.Err()
	default:
	}

	return &embeddedProcess{
		proc: proc,
		done: make(chan struct{}),
	}, nil
}

// embeddedProcess adapts tornago's process handle to the Process interface.
type embeddedProcess struct {
	proc *tornago.TorProcess
	done chan struct{}
	stop sync.Once
}

// SocksAddr returns the daemon's OS-assigned SOCKS address.
func (p *embeddedProcess) SocksAddr() string { return p.proc.SocksAddr() }

// ControlAddr returns the daemon's OS-assigned control address.
func (p *embeddedProcess) ControlAddr() string { return p.proc.ControlAddr() }

// Done reports process exit. tornago does not expose exit notification for
// its managed daemon, so the channel only closes when Stop is called; an
// embedded daemon crash surfaces as dial failures rather than a state
// transition.
func (p *embeddedProcess) Done() <-chan struct{} { return p.done }

// Stop shuts the embedded daemon down. Safe to call more than once.
func (p *embeddedProcess) Stop(_ context.Context) error {
	var err error
	p.stop.Do(func() {
		err = p.proc.Stop()
		close(p.done)
	})
	return err
}
