package engine

import "context"

// Engine is a running web-rendering engine instance.
//
// Flag-level profile attributes (proxy, image loading, popup blocking)
// only take effect at Start; runtime-applicable attributes (zoom, script
// execution, user agent) can be re-applied with ApplyProfile. The shell
// restarts the engine when a flag-level attribute changes.
type Engine interface {
	// Start launches the engine with the given profile.
	Start(ctx context.Context, profile Profile) error

	// Navigate loads a URL in the active tab.
	Navigate(ctx context.Context, url string) error

	// ApplyProfile re-applies the runtime-applicable profile attributes.
	ApplyProfile(ctx context.Context, profile Profile) error

	// Profile returns the profile the engine is currently running with.
	Profile() Profile

	// Close shuts the engine down. Safe to call on an unstarted engine.
	Close() error
}
