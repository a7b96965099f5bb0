// Package config loads the CLI's optional, non-secret local preferences
// file ($HOME/.cryptvault.toml by default), per SPEC_FULL.md §6.1. It is
// separate from the encrypted, authenticated system record: this file is
// read before authentication and must never carry key material, salts, or
// item data.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Preferences is the full set of fields this file may carry.
type Preferences struct {
	// StorageDir overrides the default storage directory when non-empty.
	StorageDir string `toml:"storage_dir"`
	// Color is the color-output preference. It is parsed, but the CLI does
	// not read it.
	Color bool `toml:"color"`
}

// Load reads and parses path. A missing file is not an error: it returns
// zero-value Preferences so the caller falls back to built-in defaults.
func Load(path string) (Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Preferences{}, nil
		}
		return Preferences{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var prefs Preferences
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return prefs, nil
}

// DefaultPath returns $HOME/.cryptvault.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: locate home directory: %w", err)
	}
	return home + "/.cryptvault.toml", nil
}
