package deletion

import (
	"fmt"
	"strconv"
	"strings"
)

// Stats summarizes one plan execution. Counters accumulate during both real
// and dry runs; DryRun records which kind produced them.
type Stats struct {
	TotalGroups      int
	SuccessfulGroups int
	FailedGroups     int
	FilesDeleted     int
	FilesFailed      int
	BytesFreed       int64
	BackupCreated    bool
	BackupDir        string
	DryRun           bool
}

const (
	kilobyte = 1 << 10
	megabyte = 1 << 20
	gigabyte = 1 << 30
)

// FormatBytes renders a byte count using binary thresholds with decimal
// labels, matching the report format ("2.0 KB", "4.8 MB", "1.9 GB").
func FormatBytes(n int64) string {
	switch {
	case n >= gigabyte:
		return fmt.Sprintf("%.1f GB", float64(n)/gigabyte)
	case n >= megabyte:
		return fmt.Sprintf("%.1f MB", float64(n)/megabyte)
	case n >= kilobyte:
		return fmt.Sprintf("%.1f KB", float64(n)/kilobyte)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Summary renders a multi-line human readable report of the run.
func (s *Stats) Summary() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("Dry run - no files were deleted\n")
	}
	fmt.Fprintf(&b, "Groups processed: %d (%d succeeded, %d failed)\n",
		s.TotalGroups, s.SuccessfulGroups, s.FailedGroups)
	fmt.Fprintf(&b, "Files deleted: %d", s.FilesDeleted)
	if s.FilesFailed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.FilesFailed)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Space freed: %s\n", FormatBytes(s.BytesFreed))
	if s.BackupCreated {
		fmt.Fprintf(&b, "Backups written to: %s\n", s.BackupDir)
	}
	return b.String()
}

// ToFlat serializes the stats to a flat key-value map.
func (s *Stats) ToFlat() map[string]string {
	return map[string]string{
		"total_groups":      strconv.Itoa(s.TotalGroups),
		"successful_groups": strconv.Itoa(s.SuccessfulGroups),
		"failed_groups":     strconv.Itoa(s.FailedGroups),
		"files_deleted":     strconv.Itoa(s.FilesDeleted),
		"files_failed":      strconv.Itoa(s.FilesFailed),
		"bytes_freed":       strconv.FormatInt(s.BytesFreed, 10),
		"backup_created":    strconv.FormatBool(s.BackupCreated),
		"backup_dir":        s.BackupDir,
		"dry_run":           strconv.FormatBool(s.DryRun),
	}
}
