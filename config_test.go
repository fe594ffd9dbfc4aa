package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
server_url = "https://api.example.com"
access_token = "tok-123"
log_level = "debug"
archive_dir = "/tmp/archives"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerURL != "https://api.example.com" {
		t.Errorf("ServerURL mismatch: %q", cfg.ServerURL)
	}
	if cfg.AccessToken != "tok-123" {
		t.Errorf("AccessToken mismatch: %q", cfg.AccessToken)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel mismatch: %q", cfg.LogLevel)
	}
	if cfg.ArchiveDir != "/tmp/archives" {
		t.Errorf("ArchiveDir mismatch: %q", cfg.ArchiveDir)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("server_url = [broken"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
