package tor

import "errors"

// Session errors.
//
// Design decision: we define sentinel errors rather than ad hoc strings so
// the shell can branch on failure modes with errors.Is (for example, a
// state error is a user-interface bug to log, while a startup timeout is a
// status to display).
var (
	// ErrTorNotFound is returned by ConfigureTorPath when no Tor executable
	// exists at the given location.
	ErrTorNotFound = errors.New("tor executable not found at configured path")

	// ErrNotConfigured is returned by Enable when no Tor path has been
	// configured yet.
	ErrNotConfigured = errors.New("tor session is not configured")

	// ErrNotStopped is returned by Enable when the session is not in the
	// Stopped state. Enable never spawns a process in any other state.
	ErrNotStopped = errors.New("tor session can only be enabled from the stopped state")

	// ErrNotRunning is returned by Disable when the session is not in a
	// state that can be disabled (Running, Failed, or Starting).
	ErrNotRunning = errors.New("tor session is not running")

	// ErrSpawn is returned when the Tor child process fails to start.
	ErrSpawn = errors.New("failed to spawn tor process")

	// ErrStartupTimeout is returned when the SOCKS or control port does not
	// become reachable within the startup timeout.
	ErrStartupTimeout = errors.New("timed out waiting for tor to become ready")

	// ErrProcessExited is returned when the Tor process exits while the
	// session is still waiting for it to become ready.
	ErrProcessExited = errors.New("tor process exited before becoming ready")

	// ErrStartCancelled is returned when the startup poll is cancelled,
	// either by context cancellation or by a Disable issued mid-start.
	ErrStartCancelled = errors.New("tor startup cancelled")
)

// State is the lifecycle state of a Session.
//
// Valid transitions:
//
//	NotConfigured -> Stopped            (ConfigureTorPath succeeds)
//	Stopped       -> Starting           (Enable spawns the process)
//	Starting      -> Running            (ports became reachable)
//	Starting      -> Failed             (timeout or early process exit)
//	Starting      -> Stopped            (Disable mid-start)
//	Running       -> Stopped            (Disable, or the process exits)
//	Failed        -> Stopped            (Acknowledge or Disable)
type State int

const (
	// StateNotConfigured means no valid Tor path has been set.
	StateNotConfigured State = iota

	// StateStopped means the path is valid but no process is running.
	StateStopped

	// StateStarting means the process is spawned and the session is
	// waiting for port readiness.
	StateStarting

	// StateRunning means the SOCKS port is accepting connections.
	StateRunning

	// StateFailed means a spawn error or readiness timeout occurred.
	// The only transition out is back to Stopped after acknowledgement.
	StateFailed
)

// String returns a human-readable state name for the status indicator.
func (s State) String() string {
	switch s {
	case StateNotConfigured:
		return "not configured"
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
