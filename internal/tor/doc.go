// Package tor manages the lifecycle of a Tor daemon on behalf of the
// browser shell.
//
// The central type is Session, a small state machine that owns exactly one
// Tor child process. The session launches the daemon from a user-configured
// directory, waits for its SOCKS and control ports to become reachable, and
// reports the SOCKS address so the shell can route the rendering engine's
// traffic through it. Disabling the session reverts nothing in the engine
// itself; it only guarantees the child process is terminated. Profile
// changes are the shell's responsibility.
//
// Design decision: the session never retries a failed start on its own.
// A failure moves the session to the Failed state and stays there until
// the user acknowledges it; automatic retries against a misconfigured Tor
// install would just burn CPU and confuse the status indicator.
package tor
