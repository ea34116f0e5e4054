// Package engine binds the browser shell to a web-rendering engine.
//
// The shell never talks to Chromium directly: it builds a Profile (the
// engine-facing projection of the user's settings) and hands it to an
// Engine implementation. The Chrome implementation drives a real
// Chrome/Chromium process over the DevTools protocol via chromedp.
//
// Profile construction is pure and deterministic so that applying the same
// settings twice always yields the same engine configuration.
package engine
