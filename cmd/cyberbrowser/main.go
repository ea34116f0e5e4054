// Package main provides the entry point for the CyberBrowser CLI.
//
// CyberBrowser is a privacy-focused desktop browser shell with one-toggle
// Tor routing. It drives a Chromium rendering engine and manages the Tor
// daemon lifecycle on the user's behalf.
//
// Usage:
//
//	cyberbrowser browse [url]
//	cyberbrowser browse --tor
//
// See --help for all available options.
package main

// main is the entry point for CyberBrowser.
func main() {
	Execute()
}
