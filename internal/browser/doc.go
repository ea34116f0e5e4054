// Package browser composes the settings store, the Tor session, the
// rendering engine, and the downloads ledger into the application shell.
//
// The shell owns the ordering rules the individual packages cannot see:
// settings are saved before they are applied, the engine restarts when a
// launch-flag attribute changes, and toggling Tor rebuilds the engine
// profile from settings instead of mutating the running one.
package browser
