package deletion

import (
	"log/slog"

	"quaver/internal/logging"
	"quaver/internal/probe"
)

// Validator runs the ordered safety checklist against deletion groups.
// The checkpoint list is fixed at construction; order matters because the
// audit report presents findings in checklist order.
type Validator struct {
	fs          probe.Filesystem
	checkpoints []Checkpoint
	backupCheck Checkpoint
	logger      *slog.Logger
}

// NewValidator builds a validator with the standard checklist. The backup
// space checkpoint is held separately and only consulted when a run intends
// to write backups into backupDir.
func NewValidator(fs probe.Filesystem, backupDir string, marginPercent int, logger *slog.Logger) *Validator {
	if fs == nil {
		fs = probe.OS()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{
		fs: fs,
		checkpoints: []Checkpoint{
			keepFileExists{},
			hasDeletions{},
			qualityRegression{},
			deleteFilesExist{},
			keepNotDeleted{},
			deletePermissions{},
		},
		backupCheck: backupSpace{backupDir: backupDir, marginPercent: marginPercent},
		logger:      logging.NewComponentLogger(logger, "validator"),
	}
}

// Checkpoints returns the checklist in evaluation order, including the
// backup space checkpoint.
func (v *Validator) Checkpoints() []Checkpoint {
	return append(append([]Checkpoint{}, v.checkpoints...), v.backupCheck)
}

// ValidateGroup evaluates every checkpoint against the group and returns the
// findings in checklist order. Error findings are logged as they surface.
func (v *Validator) ValidateGroup(group *Group, checkBackupSpace bool) []Result {
	checks := v.checkpoints
	if checkBackupSpace {
		checks = append(append([]Checkpoint{}, v.checkpoints...), v.backupCheck)
	}

	var findings []Result
	for _, check := range checks {
		for _, finding := range check.Check(group, v.fs) {
			if finding.Level == LevelError {
				v.logger.Warn("validation failed",
					logging.String("group_id", group.ID),
					logging.String("checkpoint", finding.Checkpoint),
					logging.String("message", finding.Message),
					logging.String("detail", finding.Detail))
			}
			findings = append(findings, finding)
		}
	}
	return findings
}
