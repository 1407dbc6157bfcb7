package deletion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExportJSONAuditReport(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 100)
	dup := writeAudioFile(t, dir, "dup.mp3", 50)

	plan := NewPlan(dir, nil)
	group := plan.AddGroup(keep, []string{dup}, "duplicate of the flac master")
	plan.Validate(false)

	reportPath := filepath.Join(dir, "reports", "audit.json")
	if err := plan.ExportJSON(reportPath); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	payload, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc struct {
		Metadata struct {
			TotalGroups int    `json:"total_groups"`
			GeneratedAt string `json:"generated_at"`
		} `json:"metadata"`
		Groups []struct {
			GroupID           string   `json:"group_id"`
			KeepFile          string   `json:"keep_file"`
			DeleteFiles       []string `json:"delete_files"`
			Reason            string   `json:"reason"`
			ValidationResults []struct {
				Level      string `json:"level"`
				Checkpoint string `json:"checkpoint"`
				Message    string `json:"message"`
			} `json:"validation_results"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	if doc.Metadata.TotalGroups != 1 || doc.Metadata.GeneratedAt == "" {
		t.Fatalf("metadata wrong: %+v", doc.Metadata)
	}
	if len(doc.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(doc.Groups))
	}
	exported := doc.Groups[0]
	if exported.GroupID != group.ID || exported.KeepFile != keep || exported.Reason != group.Reason {
		t.Fatalf("group fields wrong: %+v", exported)
	}
	if len(exported.DeleteFiles) != 1 || exported.DeleteFiles[0] != dup {
		t.Fatalf("delete files wrong: %v", exported.DeleteFiles)
	}
	if len(exported.ValidationResults) != len(group.Findings) {
		t.Fatalf("findings count: exported %d, have %d", len(exported.ValidationResults), len(group.Findings))
	}
	for i, finding := range group.Findings {
		if exported.ValidationResults[i].Checkpoint != finding.Checkpoint {
			t.Fatalf("finding %d checkpoint mismatch", i)
		}
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keep := writeAudioFile(t, dir, "keep.flac", 100)
	dup := writeAudioFile(t, dir, "dup.mp3", 50)

	source := NewPlan(dir, nil)
	staged := source.AddGroup(keep, []string{dup}, "reviewed and approved")

	manifestPath := filepath.Join(dir, "plan.json")
	if err := source.SaveManifest(manifestPath); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}

	restored := NewPlan(dir, nil)
	if err := restored.LoadManifest(manifestPath); err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	groups := restored.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected one restored group, got %d", len(groups))
	}
	loaded := groups[0]
	if loaded.ID != staged.ID {
		t.Fatal("group id must survive the round trip")
	}
	if loaded.KeepFile != keep || len(loaded.DeleteFiles) != 1 || loaded.DeleteFiles[0] != dup {
		t.Fatalf("group contents wrong: %+v", loaded)
	}
	if loaded.Reason != "reviewed and approved" {
		t.Fatalf("reason lost: %q", loaded.Reason)
	}

	if valid, _ := restored.Validate(false); !valid {
		t.Fatal("restored plan should validate against the live files")
	}
}

func TestLoadManifestRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	plan := NewPlan(dir, nil)
	if err := plan.LoadManifest(badPath); err == nil {
		t.Fatal("expected decode error")
	}
	if err := plan.LoadManifest(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected read error")
	}
}
