// Package history records executed deletion runs in a local SQLite ledger
// so past runs and their per-group outcomes stay auditable.
package history
