package history

import (
	"time"

	"github.com/google/uuid"

	"quaver/internal/deletion"
)

// Run is one recorded plan execution together with its per-group outcomes.
type Run struct {
	ID               string
	ExecutedAt       time.Time
	DryRun           bool
	BackupCreated    bool
	BackupDir        string
	TotalGroups      int
	SuccessfulGroups int
	FailedGroups     int
	FilesDeleted     int
	FilesFailed      int
	BytesFreed       int64
	Groups           []RunGroup
}

// RunGroup is the ledger view of a deletion group after execution.
type RunGroup struct {
	GroupID     string
	KeepFile    string
	DeleteCount int
	Reason      string
	Outcome     string
	ErrorCount  int
}

// RunFromExecution folds execution stats and the executed groups into a Run
// ready for recording.
func RunFromExecution(stats *deletion.Stats, groups []*deletion.Group) *Run {
	run := &Run{
		ID:               uuid.NewString(),
		ExecutedAt:       time.Now().UTC(),
		DryRun:           stats.DryRun,
		BackupCreated:    stats.BackupCreated,
		BackupDir:        stats.BackupDir,
		TotalGroups:      stats.TotalGroups,
		SuccessfulGroups: stats.SuccessfulGroups,
		FailedGroups:     stats.FailedGroups,
		FilesDeleted:     stats.FilesDeleted,
		FilesFailed:      stats.FilesFailed,
		BytesFreed:       stats.BytesFreed,
	}
	for _, group := range groups {
		run.Groups = append(run.Groups, RunGroup{
			GroupID:     group.ID,
			KeepFile:    group.KeepFile,
			DeleteCount: len(group.DeleteFiles),
			Reason:      group.Reason,
			Outcome:     group.Outcome,
			ErrorCount:  len(group.Errors()),
		})
	}
	return run
}
