package config

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default settings values.
// These are the values a fresh installation starts with and the values
// restored for any field that fails validation when loading from disk.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "cyberbrowser"

	// SettingsFileName is the name of the JSON settings file inside the
	// XDG config directory.
	SettingsFileName = "settings.json"

	// DefaultHomepage is opened in the first tab when no homepage is configured.
	// DuckDuckGo is the default because it matches the privacy posture of a
	// Tor-capable browser and works over Tor without CAPTCHAs in most cases.
	DefaultHomepage = "https://duckduckgo.com"

	// DefaultZoom is the default page zoom percentage.
	DefaultZoom = 100

	// MinZoom and MaxZoom bound the zoom percentage. Values outside this
	// range are clamped rather than rejected so a hand-edited settings file
	// never prevents startup.
	MinZoom = 50
	MaxZoom = 200
)

// SearchEngine identifies one of the recognized search engines.
// The value is stored verbatim in the settings file, so the constants
// double as the on-disk representation.
type SearchEngine string

// Recognized search engines. An unrecognized value in the settings file
// falls back to DefaultSearchEngine during normalization.
const (
	EngineGoogle     SearchEngine = "Google"
	EngineDuckDuckGo SearchEngine = "DuckDuckGo"
	EngineBing       SearchEngine = "Bing"
	EngineYahoo      SearchEngine = "Yahoo"
	EngineYandex     SearchEngine = "Yandex"
	EngineSearx      SearchEngine = "Searx"
	EngineStartpage  SearchEngine = "Startpage"
)

// DefaultSearchEngine is used on first launch and as the fallback for
// unrecognized values.
const DefaultSearchEngine = EngineDuckDuckGo

// searchURLs maps each recognized engine to its query URL format.
// The %s placeholder receives the URL-escaped query.
var searchURLs = map[SearchEngine]string{
	EngineGoogle:     "https://www.google.com/search?q=%s",
	EngineDuckDuckGo: "https://duckduckgo.com/?q=%s",
	EngineBing:       "https://www.bing.com/search?q=%s",
	EngineYahoo:      "https://search.yahoo.com/search?p=%s",
	EngineYandex:     "https://yandex.com/search/?text=%s",
	EngineSearx:      "https://searx.be/search?q=%s",
	EngineStartpage:  "https://www.startpage.com/sp/search?query=%s",
}

// Known reports whether the engine is one of the recognized search engines.
func (e SearchEngine) Known() bool {
	_, ok := searchURLs[e]
	return ok
}

// QueryURL builds the search URL for the given query.
// Unrecognized engines use the default engine's URL so callers never
// receive an empty string.
func (e SearchEngine) QueryURL(query string) string {
	format, ok := searchURLs[e]
	if !ok {
		format = searchURLs[DefaultSearchEngine]
	}
	return fmt.Sprintf(format, url.QueryEscape(query))
}

// Settings is the flat record of user-visible browser configuration.
// It is created with defaults on first launch, mutated when the user saves
// the settings dialog, persisted to disk immediately on save, and loaded
// once at startup. Last write wins; there is no concurrent mutation.
//
// The JSON field names are a stable on-disk contract: the file is
// human-editable, so renaming a field silently discards user data.
type Settings struct {
	// SearchEngine is the engine used for address-bar searches.
	SearchEngine SearchEngine `json:"search_engine"`

	// Homepage is the URL opened at startup and when Tor is toggled.
	Homepage string `json:"homepage"`

	// DownloadDir is the directory downloads are saved to.
	DownloadDir string `json:"download_dir"`

	// Zoom is the page zoom percentage, clamped to [MinZoom, MaxZoom].
	Zoom int `json:"zoom"`

	// JavaScriptEnabled toggles script execution in the rendering engine.
	JavaScriptEnabled bool `json:"javascript_enabled"`

	// ImagesEnabled toggles image loading.
	ImagesEnabled bool `json:"images_enabled"`

	// CookiesEnabled toggles persistent cookie storage. It is forced off
	// while Tor is active regardless of this value.
	CookiesEnabled bool `json:"cookies_enabled"`

	// PopupsBlocked toggles the popup blocker.
	PopupsBlocked bool `json:"popups_blocked"`

	// NotificationsEnabled toggles web notifications.
	NotificationsEnabled bool `json:"notifications_enabled"`

	// SpellcheckEnabled toggles spell checking in form fields.
	SpellcheckEnabled bool `json:"spellcheck_enabled"`

	// ClearOnExit wipes the downloads ledger and the ephemeral profile
	// directory when the application exits.
	ClearOnExit bool `json:"clear_on_exit"`

	// UserAgent overrides the engine's User-Agent header when non-empty.
	UserAgent string `json:"user_agent"`

	// TorDir is the directory containing the Tor executable. Empty means
	// Tor is not configured and the Tor toggle is unavailable.
	TorDir string `json:"tor_dir"`
}

// DefaultSettings returns the Settings used on first launch.
//
// Design decision: privacy toggles default to the permissive side
// (JavaScript, images, cookies on) because the application is a general
// purpose browser first; the restrictive posture is opt-in, except popup
// blocking which is on because popups are almost never wanted.
func DefaultSettings() *Settings {
	return &Settings{
		SearchEngine:         DefaultSearchEngine,
		Homepage:             DefaultHomepage,
		DownloadDir:          xdg.UserDirs.Download,
		Zoom:                 DefaultZoom,
		JavaScriptEnabled:    true,
		ImagesEnabled:        true,
		CookiesEnabled:       true,
		PopupsBlocked:        true,
		NotificationsEnabled: false,
		SpellcheckEnabled:    true,
		ClearOnExit:          false,
		UserAgent:            "",
		TorDir:               "",
	}
}

// Normalize repairs field values that are syntactically valid JSON but
// semantically out of range. It never reports an error: the settings file
// is hand-editable and a bad value must not prevent startup.
//
// Rules:
//   - Zoom is clamped to [MinZoom, MaxZoom].
//   - An unrecognized search engine is replaced with DefaultSearchEngine.
//   - An empty homepage falls back to DefaultHomepage.
func (s *Settings) Normalize() {
	if s.Zoom < MinZoom {
		s.Zoom = MinZoom
	}
	if s.Zoom > MaxZoom {
		s.Zoom = MaxZoom
	}
	if !s.SearchEngine.Known() {
		s.SearchEngine = DefaultSearchEngine
	}
	if s.Homepage == "" {
		s.Homepage = DefaultHomepage
	}
}

// XDGConfigDir returns the XDG config directory for the browser.
// On Linux: ~/.config/cyberbrowser
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGDataDir returns the XDG data directory for the browser.
// On Linux: ~/.local/share/cyberbrowser
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for the browser.
// On Linux: ~/.cache/cyberbrowser
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DefaultSettingsPath returns the default location of the settings file.
func DefaultSettingsPath() string {
	return filepath.Join(XDGConfigDir(), SettingsFileName)
}
