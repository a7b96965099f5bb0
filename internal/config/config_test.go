package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	dir := t.TempDir()
	prefs, err := Load(filepath.Join(dir, "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prefs != (Preferences{}) {
		t.Fatalf("expected zero-value preferences, got %+v", prefs)
	}
}

func TestLoadParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cryptvault.toml")
	content := "storage_dir = \"/tmp/vault\"\ncolor = true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	prefs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prefs.StorageDir != "/tmp/vault" || !prefs.Color {
		t.Fatalf("unexpected preferences: %+v", prefs)
	}
}
