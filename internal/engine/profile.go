package engine

import (
	"github.com/cyberbrowser/cyberbrowser/internal/config"
)

// Profile is the engine-facing projection of the user's settings: each
// privacy toggle maps to exactly one engine attribute, no polymorphism.
//
// A Profile is a plain value. Comparing two Profiles with == answers
// "would the engine be configured identically?", which is how the shell
// decides whether a settings change requires an engine restart.
type Profile struct {
	// ProxyURL routes all engine traffic when non-empty, e.g.
	// "socks5://127.0.0.1:9050". Empty means direct connection.
	ProxyURL string

	// CookiesPersist controls persistent cookie storage. Forced off while
	// Tor is active so circuits never share identity with direct browsing.
	CookiesPersist bool

	// JavaScriptEnabled toggles script execution.
	JavaScriptEnabled bool

	// ImagesEnabled toggles image loading.
	ImagesEnabled bool

	// PopupsBlocked suppresses script-opened windows.
	PopupsBlocked bool

	// NotificationsEnabled toggles web notifications.
	NotificationsEnabled bool

	// SpellcheckEnabled toggles spell checking.
	SpellcheckEnabled bool

	// ZoomFactor is the page scale, 1.0 = 100%.
	ZoomFactor float64

	// UserAgent overrides the engine's User-Agent when non-empty.
	UserAgent string

	// DownloadDir is where the engine saves downloads.
	DownloadDir string
}

// ProfileFromSettings builds the engine profile for the given settings.
// It is pure: the same settings always produce the same profile, so
// applying settings is idempotent by construction.
func ProfileFromSettings(s *config.Settings) Profile {
	zoom := s.Zoom
	if zoom < config.MinZoom {
		zoom = config.MinZoom
	}
	if zoom > config.MaxZoom {
		zoom = config.MaxZoom
	}

	return Profile{
		ProxyURL:             "",
		CookiesPersist:       s.CookiesEnabled,
		JavaScriptEnabled:    s.JavaScriptEnabled,
		ImagesEnabled:        s.ImagesEnabled,
		PopupsBlocked:        s.PopupsBlocked,
		NotificationsEnabled: s.NotificationsEnabled,
		SpellcheckEnabled:    s.SpellcheckEnabled,
		ZoomFactor:           float64(zoom) / 100.0,
		UserAgent:            s.UserAgent,
		DownloadDir:          s.DownloadDir,
	}
}

// WithTorProxy returns a copy of the profile routed through the given
// SOCKS5 address with persistent cookies disabled. The receiver is
// unchanged; reverting to a direct profile is done by rebuilding from
// settings, never by mutating this one back.
func (p Profile) WithTorProxy(socksAddr string) Profile {
	p.ProxyURL = "socks5://" + socksAddr
	p.CookiesPersist = false
	return p
}

// RequiresRestart reports whether switching from p to next needs an engine
// restart. Proxy routing, cookie persistence, image loading, popup
// blocking, notifications, spellcheck, and the download directory are all
// launch flags; only zoom, script execution, and user agent can change on
// a live engine.
func (p Profile) RequiresRestart(next Profile) bool {
	return p.ProxyURL != next.ProxyURL ||
		p.CookiesPersist != next.CookiesPersist ||
		p.ImagesEnabled != next.ImagesEnabled ||
		p.PopupsBlocked != next.PopupsBlocked ||
		p.NotificationsEnabled != next.NotificationsEnabled ||
		p.SpellcheckEnabled != next.SpellcheckEnabled ||
		p.DownloadDir != next.DownloadDir
}
