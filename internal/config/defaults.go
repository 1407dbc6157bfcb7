package config

// Default returns the baseline configuration used before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			BackupDir: "~/.local/share/quaver/backups",
			LogDir:    "~/.local/share/quaver/logs",
			HistoryDB: "~/.local/share/quaver/history.db",
		},
		Safety: Safety{
			BackupMarginPercent: 10,
			RequireBackup:       false,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
