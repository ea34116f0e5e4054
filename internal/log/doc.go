// Package log provides the application's slog setup.
//
// A browser's logs brush against cookies, credentials embedded in URLs,
// and Tor control-port secrets. The RedactingHandler wraps any slog
// handler and masks such attributes before they reach the sink, so log
// verbosity can be raised for debugging without leaking session material.
package log
