package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id has no recorded entry.
var ErrNotFound = errors.New("history: run not found")

// Store is the deletion-run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the ledger database location.
func (s *Store) Path() string {
	return s.path
}

// RecordRun persists a run and its groups in one transaction.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO deletion_runs (
            id, executed_at, dry_run, backup_created, backup_dir,
            total_groups, successful_groups, failed_groups,
            files_deleted, files_failed, bytes_freed
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ExecutedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(run.DryRun),
		boolToInt(run.BackupCreated),
		nullableString(run.BackupDir),
		run.TotalGroups,
		run.SuccessfulGroups,
		run.FailedGroups,
		run.FilesDeleted,
		run.FilesFailed,
		run.BytesFreed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, group := range run.Groups {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO deletion_run_groups (
                run_id, group_id, keep_file, delete_count, reason, outcome, error_count
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			group.GroupID,
			nullableString(group.KeepFile),
			group.DeleteCount,
			nullableString(group.Reason),
			nullableString(group.Outcome),
			group.ErrorCount,
		)
		if err != nil {
			return fmt.Errorf("insert run group %s: %w", group.GroupID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first, without their groups.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT id, executed_at, dry_run, backup_created, backup_dir,
            total_groups, successful_groups, failed_groups,
            files_deleted, files_failed, bytes_freed
        FROM deletion_runs ORDER BY executed_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a single run together with its groups.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, executed_at, dry_run, backup_created, backup_dir,
            total_groups, successful_groups, failed_groups,
            files_deleted, files_failed, bytes_freed
        FROM deletion_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, keep_file, delete_count, reason, outcome, error_count
        FROM deletion_run_groups WHERE run_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("query run groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var group RunGroup
		var keepFile, reason, outcome sql.NullString
		if err := rows.Scan(&group.GroupID, &keepFile, &group.DeleteCount, &reason, &outcome, &group.ErrorCount); err != nil {
			return nil, fmt.Errorf("scan run group: %w", err)
		}
		group.KeepFile = keepFile.String
		group.Reason = reason.String
		group.Outcome = outcome.String
		run.Groups = append(run.Groups, group)
	}
	return run, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	run := &Run{}
	var executedAt string
	var dryRun, backupCreated int
	var backupDir sql.NullString
	err := scanner.Scan(
		&run.ID,
		&executedAt,
		&dryRun,
		&backupCreated,
		&backupDir,
		&run.TotalGroups,
		&run.SuccessfulGroups,
		&run.FailedGroups,
		&run.FilesDeleted,
		&run.FilesFailed,
		&run.BytesFreed,
	)
	if err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	run.BackupCreated = backupCreated != 0
	run.BackupDir = backupDir.String
	if parsed, err := time.Parse(time.RFC3339Nano, executedAt); err == nil {
		run.ExecutedAt = parsed
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
