package engine

import (
	"testing"

	"github.com/cyberbrowser/cyberbrowser/internal/config"
)

// TestProfileFromSettings tests the settings-to-profile mapping.
func TestProfileFromSettings(t *testing.T) {
	t.Parallel()

	t.Run("each toggle maps to its profile attribute", func(t *testing.T) {
		t.Parallel()

		s := &config.Settings{
			SearchEngine:         config.EngineGoogle,
			Homepage:             "https://example.org",
			DownloadDir:          "/tmp/dl",
			Zoom:                 150,
			JavaScriptEnabled:    false,
			ImagesEnabled:        true,
			CookiesEnabled:       false,
			PopupsBlocked:        true,
			NotificationsEnabled: false,
			SpellcheckEnabled:    true,
			UserAgent:            "custom-agent",
		}

		p := ProfileFromSettings(s)

		if p.JavaScriptEnabled {
			t.Error("expected javascript disabled")
		}
		if !p.ImagesEnabled {
			t.Error("expected images enabled")
		}
		if p.CookiesPersist {
			t.Error("expected cookies not persisted")
		}
		if !p.PopupsBlocked {
			t.Error("expected popups blocked")
		}
		if p.NotificationsEnabled {
			t.Error("expected notifications disabled")
		}
		if !p.SpellcheckEnabled {
			t.Error("expected spellcheck enabled")
		}
		if p.ZoomFactor != 1.5 {
			t.Errorf("expected zoom factor 1.5, got %v", p.ZoomFactor)
		}
		if p.UserAgent != "custom-agent" {
			t.Errorf("expected custom user agent, got %q", p.UserAgent)
		}
		if p.DownloadDir != "/tmp/dl" {
			t.Errorf("expected download dir /tmp/dl, got %q", p.DownloadDir)
		}
		if p.ProxyURL != "" {
			t.Errorf("expected direct connection, got proxy %q", p.ProxyURL)
		}
	})

	t.Run("applying the same settings twice yields identical profiles", func(t *testing.T) {
		t.Parallel()

		s := config.DefaultSettings()
		s.Zoom = 125
		s.JavaScriptEnabled = false

		first := ProfileFromSettings(s)
		second := ProfileFromSettings(s)

		if first != second {
			t.Errorf("profiles differ:\nfirst  %+v\nsecond %+v", first, second)
		}
	})

	t.Run("out-of-range zoom is clamped", func(t *testing.T) {
		t.Parallel()

		s := config.DefaultSettings()
		s.Zoom = 500
		if got := ProfileFromSettings(s).ZoomFactor; got != 2.0 {
			t.Errorf("expected zoom factor 2.0, got %v", got)
		}

		s.Zoom = 1
		if got := ProfileFromSettings(s).ZoomFactor; got != 0.5 {
			t.Errorf("expected zoom factor 0.5, got %v", got)
		}
	})
}

// TestProfileWithTorProxy tests the Tor-routed profile derivation.
func TestProfileWithTorProxy(t *testing.T) {
	t.Parallel()

	base := ProfileFromSettings(config.DefaultSettings())
	torProfile := base.WithTorProxy("127.0.0.1:9050")

	t.Run("proxy URL is set", func(t *testing.T) {
		t.Parallel()
		if torProfile.ProxyURL != "socks5://127.0.0.1:9050" {
			t.Errorf("unexpected proxy URL %q", torProfile.ProxyURL)
		}
	})

	t.Run("persistent cookies are disabled", func(t *testing.T) {
		t.Parallel()
		if torProfile.CookiesPersist {
			t.Error("expected cookies not persisted under Tor")
		}
	})

	t.Run("receiver is unchanged", func(t *testing.T) {
		t.Parallel()
		if base.ProxyURL != "" {
			t.Errorf("expected base profile untouched, got proxy %q", base.ProxyURL)
		}
		if !base.CookiesPersist {
			t.Error("expected base profile cookies unchanged")
		}
	})
}

// TestProfileRequiresRestart tests the flag-level vs runtime split.
func TestProfileRequiresRestart(t *testing.T) {
	t.Parallel()

	base := ProfileFromSettings(config.DefaultSettings())

	t.Run("identical profile needs no restart", func(t *testing.T) {
		t.Parallel()
		if base.RequiresRestart(base) {
			t.Error("expected no restart for identical profile")
		}
	})

	t.Run("zoom change needs no restart", func(t *testing.T) {
		t.Parallel()
		next := base
		next.ZoomFactor = 1.75
		if base.RequiresRestart(next) {
			t.Error("zoom is runtime-applicable")
		}
	})

	t.Run("javascript change needs no restart", func(t *testing.T) {
		t.Parallel()
		next := base
		next.JavaScriptEnabled = !base.JavaScriptEnabled
		if base.RequiresRestart(next) {
			t.Error("script execution is runtime-applicable")
		}
	})

	t.Run("proxy change needs restart", func(t *testing.T) {
		t.Parallel()
		next := base.WithTorProxy("127.0.0.1:9050")
		if !base.RequiresRestart(next) {
			t.Error("proxy routing is a launch flag")
		}
	})

	t.Run("image toggle needs restart", func(t *testing.T) {
		t.Parallel()
		next := base
		next.ImagesEnabled = !base.ImagesEnabled
		if !base.RequiresRestart(next) {
			t.Error("image loading is a launch flag")
		}
	})
}
