package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists browser settings.
//
// Load never fails: a missing or malformed file yields defaults so the
// browser always starts. Save reports errors so the caller can surface a
// dismissible notice, but a failed save is never fatal.
type Store interface {
	Load() *Settings
	Save(*Settings) error
}

// FileStore is the JSON-file implementation of Store.
type FileStore struct {
	// path is the location of the settings file.
	path string

	// logger records load/save diagnostics. Load failures are logged here
	// because they are deliberately not returned to the caller.
	logger *slog.Logger
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithStoreLogger sets the logger used for load/save diagnostics.
func WithStoreLogger(logger *slog.Logger) FileStoreOption {
	return func(fs *FileStore) {
		fs.logger = logger
	}
}

// NewFileStore creates a FileStore at the given path.
// An empty path uses the default XDG location.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	if path == "" {
		path = DefaultSettingsPath()
	}

	fs := &FileStore{
		path:   path,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

// Path returns the location of the settings file.
func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads settings from disk.
//
// It fails soft: a missing file, unreadable file, or malformed JSON all
// yield DefaultSettings. Fields present in the file survive; fields the
// file omits keep their defaults because unmarshalling applies on top of
// the default value. The result is always normalized, so out-of-range
// values (for example zoom 500) come back clamped.
func (fs *FileStore) Load() *Settings {
	settings := DefaultSettings()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fs.logger.Warn("settings file unreadable, using defaults",
				"path", fs.path, "error", err)
		}
		return settings
	}

	if err := json.Unmarshal(data, settings); err != nil {
		fs.logger.Warn("settings file malformed, using defaults",
			"path", fs.path, "error", err)
		// Unmarshal may have partially populated the struct before
		// failing. Start over from clean defaults.
		settings = DefaultSettings()
	}

	settings.Normalize()
	return settings
}

// Save writes settings to disk atomically where the platform allows:
// the file is written to a temporary name in the same directory and then
// renamed over the destination, so a crash mid-write never leaves a
// truncated settings file behind.
//
// The settings are normalized before writing so the file on disk is
// always within valid ranges.
func (fs *FileStore) Save(settings *Settings) error {
	settings.Normalize()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	// The temp file must live in the destination directory: rename is only
	// atomic within a filesystem.
	tmp, err := os.CreateTemp(dir, SettingsFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary settings file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary settings file: %w", err)
	}

	// Owner-only, same as every other file this application writes.
	if err := os.Chmod(tmpPath, 0600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set settings file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, fs.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	fs.logger.Debug("settings saved", "path", fs.path)
	return nil
}
