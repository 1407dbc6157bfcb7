// Package config loads, validates, and normalizes quaver's TOML configuration.
package config
