package deletion

import (
	"fmt"
	"path/filepath"
	"strings"

	"quaver/internal/probe"
)

// Checkpoint is one safety check run against a deletion group. Checkpoints
// only report findings; they never mutate the group or the filesystem.
type Checkpoint interface {
	Name() string
	Check(group *Group, fs probe.Filesystem) []Result
}

// Checkpoint names as they appear in findings and audit reports.
const (
	CheckKeepFileExists    = "keep_file_exists"
	CheckHasDeletions      = "has_deletions"
	CheckQualityRegression = "quality_regression"
	CheckDeleteFilesExist  = "delete_files_exist"
	CheckKeepNotDeleted    = "keep_not_deleted"
	CheckDeletePermissions = "delete_permissions"
	CheckBackupSpace       = "backup_space"
)

type keepFileExists struct{}

func (keepFileExists) Name() string { return CheckKeepFileExists }

func (keepFileExists) Check(group *Group, fs probe.Filesystem) []Result {
	if strings.TrimSpace(group.KeepFile) == "" {
		return []Result{failure(CheckKeepFileExists, "keep file path is empty", "")}
	}
	if !fs.Exists(group.KeepFile) {
		return []Result{failure(CheckKeepFileExists, "keep file does not exist", group.KeepFile)}
	}
	return []Result{info(CheckKeepFileExists, "keep file exists")}
}

type hasDeletions struct{}

func (hasDeletions) Name() string { return CheckHasDeletions }

func (hasDeletions) Check(group *Group, fs probe.Filesystem) []Result {
	if len(group.DeleteFiles) == 0 {
		return []Result{failure(CheckHasDeletions, "no files queued for deletion", "")}
	}
	return []Result{info(CheckHasDeletions, fmt.Sprintf("%d files queued for deletion", len(group.DeleteFiles)))}
}

// formatRanks orders audio container extensions by expected fidelity.
// Lossless formats outrank every lossy one; within each class the order
// tracks typical encoder quality. Unknown extensions rank below everything
// so they never trigger a regression warning against a known keep format.
var formatRanks = map[string]int{
	".flac": 100,
	".wav":  95,
	".aiff": 94,
	".ape":  93,
	".alac": 92,
	".opus": 60,
	".ogg":  55,
	".m4a":  55,
	".aac":  50,
	".mp3":  40,
	".wma":  30,
}

func formatRank(path string) int {
	if rank, ok := formatRanks[strings.ToLower(filepath.Ext(path))]; ok {
		return rank
	}
	return 20
}

// qualityRegression is advisory only. Working from paths alone, the best it
// can do is compare container formats, so it warns and lets the operator
// decide rather than blocking the group.
type qualityRegression struct{}

func (qualityRegression) Name() string { return CheckQualityRegression }

func (qualityRegression) Check(group *Group, fs probe.Filesystem) []Result {
	keepRank := formatRank(group.KeepFile)
	var results []Result
	for _, path := range group.DeleteFiles {
		if formatRank(path) > keepRank {
			results = append(results, warning(CheckQualityRegression,
				"file queued for deletion appears higher quality than the keep file", path))
		}
	}
	if len(results) == 0 {
		return []Result{info(CheckQualityRegression, "no quality regression detected")}
	}
	return results
}

type deleteFilesExist struct{}

func (deleteFilesExist) Name() string { return CheckDeleteFilesExist }

func (deleteFilesExist) Check(group *Group, fs probe.Filesystem) []Result {
	var results []Result
	for _, path := range group.DeleteFiles {
		if !fs.Exists(path) {
			results = append(results, failure(CheckDeleteFilesExist, "file queued for deletion does not exist", path))
		}
	}
	if len(results) == 0 {
		return []Result{info(CheckDeleteFilesExist, fmt.Sprintf("%d files verified", len(group.DeleteFiles)))}
	}
	return results
}

type keepNotDeleted struct{}

func (keepNotDeleted) Name() string { return CheckKeepNotDeleted }

func (keepNotDeleted) Check(group *Group, fs probe.Filesystem) []Result {
	for _, path := range group.DeleteFiles {
		if path == group.KeepFile {
			return []Result{failure(CheckKeepNotDeleted, "keep file is also queued for deletion", path)}
		}
	}
	return []Result{info(CheckKeepNotDeleted, "original preserved")}
}

type deletePermissions struct{}

func (deletePermissions) Name() string { return CheckDeletePermissions }

func (deletePermissions) Check(group *Group, fs probe.Filesystem) []Result {
	var results []Result
	for _, path := range group.DeleteFiles {
		if !fs.Removable(path) {
			results = append(results, failure(CheckDeletePermissions, "no permission to delete file", path))
		}
	}
	if len(results) == 0 {
		return []Result{info(CheckDeletePermissions, "all files are removable")}
	}
	return results
}

// backupSpace verifies the backup volume can hold every file queued for
// deletion plus a safety margin. Only consulted when the run will write
// backups; missing delete files contribute zero and are caught elsewhere.
type backupSpace struct {
	backupDir     string
	marginPercent int
}

func (backupSpace) Name() string { return CheckBackupSpace }

func (c backupSpace) Check(group *Group, fs probe.Filesystem) []Result {
	if strings.TrimSpace(c.backupDir) == "" {
		return []Result{failure(CheckBackupSpace, "backup directory is not configured", "")}
	}

	var required int64
	for _, path := range group.DeleteFiles {
		size, err := fs.Size(path)
		if err != nil {
			continue
		}
		required += size
	}
	required += required * int64(c.marginPercent) / 100

	free, err := fs.FreeSpace(c.backupDir)
	if err != nil {
		return []Result{failure(CheckBackupSpace, "cannot determine free space on backup volume", err.Error())}
	}
	if uint64(required) > free {
		return []Result{failure(CheckBackupSpace, "insufficient space on backup volume",
			fmt.Sprintf("need %s including %d%% margin, have %s", FormatBytes(required), c.marginPercent, FormatBytes(int64(free))))}
	}
	return []Result{info(CheckBackupSpace, fmt.Sprintf("backup volume has %s free", FormatBytes(int64(free))))}
}
