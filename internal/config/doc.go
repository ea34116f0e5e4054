// Package config provides the browser settings model and its on-disk store.
// It defines the Settings record persisted as a flat JSON file, the default
// values used on first launch, and the normalization rules applied to values
// read back from disk.
package config
