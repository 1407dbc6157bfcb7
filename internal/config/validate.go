package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSafety(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		return errors.New("paths.backup_dir must be set")
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		return errors.New("paths.history_db must be set")
	}
	return nil
}

func (c *Config) validateSafety() error {
	if c.Safety.BackupMarginPercent < 0 || c.Safety.BackupMarginPercent > 100 {
		return errors.New("safety.backup_margin_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
