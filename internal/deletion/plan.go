package deletion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"quaver/internal/logging"
	"quaver/internal/probe"
)

const defaultBackupMarginPercent = 10

func newGroupID() string {
	return uuid.NewString()
}

// Plan collects deletion groups and executes them sequentially once every
// group has passed validation. A plan is not safe for concurrent use; run
// one plan at a time and serialize runs sharing a backup directory through
// the lock Execute takes on it.
type Plan struct {
	fs            probe.Filesystem
	validator     *Validator
	logger        *slog.Logger
	backupDir     string
	marginPercent int
	groups        []*Group
}

// NewPlan builds a plan backed by the local filesystem.
func NewPlan(backupDir string, logger *slog.Logger) *Plan {
	return NewPlanWithFilesystem(backupDir, probe.OS(), logger)
}

// NewPlanWithFilesystem builds a plan over an explicit filesystem, which is
// how tests substitute failure-injecting fakes.
func NewPlanWithFilesystem(backupDir string, fs probe.Filesystem, logger *slog.Logger) *Plan {
	if fs == nil {
		fs = probe.OS()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	plan := &Plan{
		fs:            fs,
		logger:        logging.NewComponentLogger(logger, "deletion"),
		backupDir:     backupDir,
		marginPercent: defaultBackupMarginPercent,
	}
	plan.validator = NewValidator(fs, backupDir, plan.marginPercent, logger)
	return plan
}

// SetBackupMargin overrides the free-space margin applied when checking the
// backup volume. Percent is clamped to [0,100].
func (p *Plan) SetBackupMargin(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.marginPercent = percent
	p.validator = NewValidator(p.fs, p.backupDir, percent, p.logger)
}

// AddGroup appends a deletion group and returns it. The group receives a
// generated id; validation happens later so groups can be staged freely.
func (p *Plan) AddGroup(keepFile string, deleteFiles []string, reason string) *Group {
	group := &Group{
		ID:          newGroupID(),
		KeepFile:    keepFile,
		DeleteFiles: append([]string{}, deleteFiles...),
		Reason:      reason,
	}
	p.groups = append(p.groups, group)
	return group
}

// Groups returns the staged groups in insertion order.
func (p *Plan) Groups() []*Group {
	return p.groups
}

// Validate runs the checklist against every group, replacing previously
// attached findings, and reports whether the whole plan is executable.
// The returned slice aggregates error-level findings across all groups.
func (p *Plan) Validate(checkBackupSpace bool) (bool, []Result) {
	valid := true
	var errs []Result
	for _, group := range p.groups {
		group.Findings = p.validator.ValidateGroup(group, checkBackupSpace)
		if !group.IsValid() {
			valid = false
			errs = append(errs, group.Errors()...)
		}
	}
	return valid, errs
}

// Options controls plan execution.
type Options struct {
	// DryRun simulates the run. Counters accumulate as if files were
	// deleted, but nothing is written or removed.
	DryRun bool
	// CreateBackup copies each file into the backup directory before
	// deleting it. A failed backup blocks that file's deletion.
	CreateBackup bool
}

// Execute validates and then processes every group in order. Invalid groups
// are skipped and counted as failed; within a valid group each file is
// backed up (when requested) and removed independently, so one failure
// never aborts the run. Only context cancellation and backup-lock
// contention end the run early.
func (p *Plan) Execute(ctx context.Context, opts Options) (*Stats, error) {
	stats := &Stats{
		TotalGroups: len(p.groups),
		DryRun:      opts.DryRun,
	}

	backupRun := opts.CreateBackup && !opts.DryRun
	if backupRun {
		// The directory must exist before validation so the space check
		// can stat the backup volume.
		if err := os.MkdirAll(p.backupDir, 0o755); err != nil {
			return stats, fmt.Errorf("create backup directory: %w", err)
		}
		lock := flock.New(filepath.Join(p.backupDir, ".quaver-lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return stats, fmt.Errorf("lock backup directory: %w", err)
		}
		if !locked {
			return stats, fmt.Errorf("backup directory %s is locked by another run", p.backupDir)
		}
		defer func() {
			_ = lock.Unlock()
		}()
		stats.BackupDir = p.backupDir
	}

	p.Validate(backupRun)

	usedBackupNames := make(map[string]struct{})

	for _, group := range p.groups {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !group.IsValid() {
			stats.FailedGroups++
			group.Outcome = OutcomeSkipped
			p.logger.Warn("skipping invalid group",
				logging.String("group_id", group.ID),
				logging.Int("errors", len(group.Errors())))
			continue
		}

		groupFailed := false
		for _, path := range group.DeleteFiles {
			size, _ := p.fs.Size(path)

			if opts.DryRun {
				stats.FilesDeleted++
				stats.BytesFreed += size
				p.logger.Info("would delete file",
					logging.String("group_id", group.ID),
					logging.String("path", path))
				continue
			}

			if opts.CreateBackup {
				dst := p.nextBackupPath(path, usedBackupNames)
				if err := p.fs.Copy(path, dst); err != nil {
					stats.FilesFailed++
					groupFailed = true
					p.logger.Error("backup failed, file not deleted",
						logging.String("group_id", group.ID),
						logging.String("path", path),
						logging.Error(err))
					continue
				}
				stats.BackupCreated = true
			}

			if err := p.fs.Remove(path); err != nil {
				stats.FilesFailed++
				groupFailed = true
				p.logger.Error("delete failed",
					logging.String("group_id", group.ID),
					logging.String("path", path),
					logging.Error(err))
				continue
			}
			stats.FilesDeleted++
			stats.BytesFreed += size
		}

		if groupFailed {
			stats.FailedGroups++
			group.Outcome = OutcomeFailed
		} else {
			stats.SuccessfulGroups++
			group.Outcome = OutcomeSucceeded
		}
	}

	p.logger.Info("plan execution finished",
		logging.Int("groups", stats.TotalGroups),
		logging.Int("deleted", stats.FilesDeleted),
		logging.Int("failed", stats.FilesFailed),
		logging.String("freed", FormatBytes(stats.BytesFreed)))
	return stats, nil
}

// nextBackupPath picks a destination inside the backup directory, appending
// a numeric suffix when the base name is already taken either on disk or
// earlier in this run.
func (p *Plan) nextBackupPath(src string, used map[string]struct{}) string {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for n := 1; ; n++ {
		if _, taken := used[candidate]; !taken && !p.fs.Exists(filepath.Join(p.backupDir, candidate)) {
			break
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
	used[candidate] = struct{}{}
	return filepath.Join(p.backupDir, candidate)
}

// ValidateDeletion is a convenience wrapper for callers holding a bare
// keep/delete split. It runs the checklist without the backup space check
// and returns the error messages, if any.
func ValidateDeletion(keepFile string, deleteFiles []string, logger *slog.Logger) (bool, []string) {
	plan := NewPlan("", logger)
	group := plan.AddGroup(keepFile, deleteFiles, "")
	valid, _ := plan.Validate(false)

	var messages []string
	for _, finding := range group.Errors() {
		message := finding.Message
		if finding.Detail != "" {
			message = fmt.Sprintf("%s: %s", message, finding.Detail)
		}
		messages = append(messages, message)
	}
	return valid, messages
}
