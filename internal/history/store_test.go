package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quaver/internal/deletion"
	"quaver/internal/testsupport"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(testsupport.NewConfig(t).Paths.HistoryDB)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func sampleRun(id string, executedAt time.Time) *Run {
	return &Run{
		ID:               id,
		ExecutedAt:       executedAt,
		BackupCreated:    true,
		BackupDir:        "/backups",
		TotalGroups:      2,
		SuccessfulGroups: 1,
		FailedGroups:     1,
		FilesDeleted:     3,
		FilesFailed:      1,
		BytesFreed:       12_345,
		Groups: []RunGroup{
			{GroupID: "g1", KeepFile: "/music/keep.flac", DeleteCount: 3, Reason: "lossless master kept", Outcome: deletion.OutcomeSucceeded},
			{GroupID: "g2", KeepFile: "/music/gone.flac", DeleteCount: 1, Outcome: deletion.OutcomeSkipped, ErrorCount: 1},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	executedAt := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	if err := store.RecordRun(ctx, sampleRun("run-1", executedAt)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !run.ExecutedAt.Equal(executedAt) {
		t.Fatalf("executed at: got %v, want %v", run.ExecutedAt, executedAt)
	}
	if run.TotalGroups != 2 || run.FilesDeleted != 3 || run.BytesFreed != 12_345 {
		t.Fatalf("counters wrong: %+v", run)
	}
	if !run.BackupCreated || run.BackupDir != "/backups" {
		t.Fatalf("backup fields wrong: %+v", run)
	}
	if len(run.Groups) != 2 {
		t.Fatalf("groups: got %d, want 2", len(run.Groups))
	}
	first := run.Groups[0]
	if first.GroupID != "g1" || first.Outcome != deletion.OutcomeSucceeded || first.DeleteCount != 3 {
		t.Fatalf("first group wrong: %+v", first)
	}
	if run.Groups[1].ErrorCount != 1 || run.Groups[1].Outcome != deletion.OutcomeSkipped {
		t.Fatalf("second group wrong: %+v", run.Groups[1])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Fatalf("wrong order: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if len(runs[0].Groups) != 0 {
		t.Fatal("ListRuns should not load groups")
	}

	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "run-c" {
		t.Fatalf("limit not honored: %d runs", len(limited))
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunFromExecution(t *testing.T) {
	stats := &deletion.Stats{
		TotalGroups:      2,
		SuccessfulGroups: 1,
		FailedGroups:     1,
		FilesDeleted:     2,
		BytesFreed:       500,
		BackupCreated:    true,
		BackupDir:        "/b",
	}
	groups := []*deletion.Group{
		{ID: "g1", KeepFile: "/k.flac", DeleteFiles: []string{"/d1.mp3", "/d2.mp3"}, Outcome: deletion.OutcomeSucceeded},
		{
			ID:       "g2",
			KeepFile: "/missing.flac",
			Outcome:  deletion.OutcomeSkipped,
			Findings: []deletion.Result{{Level: deletion.LevelError, Checkpoint: deletion.CheckKeepFileExists}},
		},
	}

	run := RunFromExecution(stats, groups)
	if run.ID == "" {
		t.Fatal("run id not generated")
	}
	if run.ExecutedAt.IsZero() {
		t.Fatal("executed timestamp not set")
	}
	if run.TotalGroups != 2 || run.BytesFreed != 500 || !run.BackupCreated {
		t.Fatalf("stats not carried over: %+v", run)
	}
	if len(run.Groups) != 2 {
		t.Fatalf("groups: %d", len(run.Groups))
	}
	if run.Groups[0].DeleteCount != 2 || run.Groups[0].Outcome != deletion.OutcomeSucceeded {
		t.Fatalf("first group wrong: %+v", run.Groups[0])
	}
	if run.Groups[1].ErrorCount != 1 {
		t.Fatalf("error count not derived: %+v", run.Groups[1])
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger", "history.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := first.RecordRun(context.Background(), sampleRun("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	runs, err := second.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("recorded run lost across reopen: %d", len(runs))
	}
}
