package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if cfg.Safety.BackupMarginPercent != 10 {
		t.Fatalf("unexpected default margin: %d", cfg.Safety.BackupMarginPercent)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected default level: %q", cfg.Logging.Level)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
backup_dir = "` + filepath.Join(dir, "backups") + `"

[safety]
backup_margin_percent = 25
require_backup = true

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("resolved path mismatch: %q", resolved)
	}
	if cfg.Safety.BackupMarginPercent != 25 {
		t.Fatalf("margin not applied: %d", cfg.Safety.BackupMarginPercent)
	}
	if !cfg.Safety.RequireBackup {
		t.Fatal("require_backup not applied")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level not normalized: %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadMargin(t *testing.T) {
	cfg := Default()
	cfg.Safety.BackupMarginPercent = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for margin > 100")
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	expanded, err := ExpandPath("~/music")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !strings.HasPrefix(expanded, home) {
		t.Fatalf("expected %q under %q", expanded, home)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[safety]") {
		t.Fatal("sample config missing safety section")
	}
}
