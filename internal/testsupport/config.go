package testsupport

import (
	"path/filepath"
	"testing"

	"quaver/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BackupDir = filepath.Join(base, "backups")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.HistoryDB = filepath.Join(base, "history.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBackupMargin overrides the backup free-space margin on the test config.
func WithBackupMargin(percent int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Safety.BackupMarginPercent = percent
	}
}

// WithRequireBackup forces backups on for the test config.
func WithRequireBackup() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Safety.RequireBackup = true
	}
}
