package deletion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"quaver/internal/probe"
	"quaver/internal/testsupport"
)

// fakeFS wraps the real filesystem and injects failures per path.
type fakeFS struct {
	probe.Filesystem
	copyErr   map[string]error
	removeErr map[string]error
	free      uint64
	freeSet   bool
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		Filesystem: probe.OS(),
		copyErr:    make(map[string]error),
		removeErr:  make(map[string]error),
	}
}

func (f *fakeFS) Copy(src, dst string) error {
	if err := f.copyErr[src]; err != nil {
		return err
	}
	return f.Filesystem.Copy(src, dst)
}

func (f *fakeFS) Remove(path string) error {
	if err := f.removeErr[path]; err != nil {
		return err
	}
	return f.Filesystem.Remove(path)
}

func (f *fakeFS) FreeSpace(path string) (uint64, error) {
	if f.freeSet {
		return f.free, nil
	}
	return f.Filesystem.FreeSpace(path)
}

func writeAudioFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	return testsupport.WriteFile(t, dir, name, size)
}

func TestExecuteDryRunTouchesNothing(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 100)
	dup1 := writeAudioFile(t, dir, "dup1.mp3", 50)
	dup2 := writeAudioFile(t, dir, "dup2.mp3", 70)

	plan := NewPlan(filepath.Join(dir, "backups"), nil)
	plan.AddGroup(keep, []string{dup1, dup2}, "lower bitrate copies")

	stats, err := plan.Execute(context.Background(), Options{DryRun: true, CreateBackup: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	for _, path := range []string{keep, dup1, dup2} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("dry run touched %s: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "backups")); !os.IsNotExist(err) {
		t.Fatal("dry run created the backup directory")
	}
	if !stats.DryRun || stats.FilesDeleted != 2 || stats.BytesFreed != 120 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.SuccessfulGroups != 1 || stats.FailedGroups != 0 {
		t.Fatalf("unexpected group counters: %+v", stats)
	}
}

func TestExecuteDeletesValidSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "album/track.flac", 200)
	dup1 := writeAudioFile(t, dir, "album/track.mp3", 80)
	dup2 := writeAudioFile(t, dir, "other/track.mp3", 60)
	orphan := writeAudioFile(t, dir, "orphan.mp3", 40)
	backupDir := filepath.Join(dir, "backups")

	plan := NewPlan(backupDir, nil)
	plan.AddGroup(keep, []string{dup1, dup2}, "duplicates of the flac master")
	plan.AddGroup(filepath.Join(dir, "missing.flac"), []string{orphan}, "keep file vanished")

	stats, err := plan.Execute(context.Background(), Options{CreateBackup: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	for _, path := range []string{dup1, dup2} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s should have been deleted", path)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatal("keep file must survive")
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatal("file from invalid group must remain untouched")
	}

	if stats.TotalGroups != 2 || stats.SuccessfulGroups != 1 || stats.FailedGroups != 1 {
		t.Fatalf("unexpected group counters: %+v", stats)
	}
	if stats.FilesDeleted != 2 || stats.BytesFreed != 140 {
		t.Fatalf("unexpected file counters: %+v", stats)
	}
	if !stats.BackupCreated || stats.BackupDir != backupDir {
		t.Fatalf("backup bookkeeping wrong: %+v", stats)
	}

	// Both deleted files were backed up under their disambiguated names.
	if _, err := os.Stat(filepath.Join(backupDir, "track.mp3")); err != nil {
		t.Fatal("first backup missing")
	}
	if _, err := os.Stat(filepath.Join(backupDir, "track-1.mp3")); err != nil {
		t.Fatal("collision backup missing")
	}
}

func TestBackupFailureBlocksDeletion(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 100)
	dup1 := writeAudioFile(t, dir, "dup1.mp3", 50)
	dup2 := writeAudioFile(t, dir, "dup2.mp3", 50)

	fs := newFakeFS()
	fs.copyErr[dup1] = os.ErrPermission

	plan := NewPlanWithFilesystem(filepath.Join(dir, "backups"), fs, nil)
	plan.AddGroup(keep, []string{dup1, dup2}, "")

	stats, err := plan.Execute(context.Background(), Options{CreateBackup: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := os.Stat(dup1); err != nil {
		t.Fatal("file with failed backup must not be deleted")
	}
	if _, err := os.Stat(dup2); !os.IsNotExist(err) {
		t.Fatal("unaffected file should still be deleted")
	}
	if stats.FilesFailed != 1 || stats.FilesDeleted != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.FailedGroups != 1 || stats.SuccessfulGroups != 0 {
		t.Fatalf("group with a failed file must count as failed: %+v", stats)
	}
}

func TestRemoveFailureIsolatedPerFile(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 100)
	dup1 := writeAudioFile(t, dir, "dup1.mp3", 50)
	dup2 := writeAudioFile(t, dir, "dup2.mp3", 50)

	fs := newFakeFS()
	fs.removeErr[dup1] = os.ErrPermission

	plan := NewPlanWithFilesystem(filepath.Join(dir, "backups"), fs, nil)
	plan.AddGroup(keep, []string{dup1, dup2}, "")

	stats, err := plan.Execute(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(dup2); !os.IsNotExist(err) {
		t.Fatal("second file should be deleted despite first failing")
	}
	if stats.FilesFailed != 1 || stats.FilesDeleted != 1 || stats.FailedGroups != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestExecuteHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 10)
	dup := writeAudioFile(t, dir, "dup.mp3", 10)

	plan := NewPlan(filepath.Join(dir, "backups"), nil)
	plan.AddGroup(keep, []string{dup}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := plan.Execute(ctx, Options{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(dup); err != nil {
		t.Fatal("cancelled run must not delete files")
	}
}

func TestValidateDeletionConvenience(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 10)
	dup := writeAudioFile(t, dir, "dup.mp3", 10)

	valid, messages := ValidateDeletion(keep, []string{dup}, nil)
	if !valid || len(messages) != 0 {
		t.Fatalf("expected clean validation, got valid=%v messages=%v", valid, messages)
	}

	valid, messages = ValidateDeletion(keep, []string{keep}, nil)
	if valid || len(messages) == 0 {
		t.Fatal("keep file in delete list must fail validation with messages")
	}
}
