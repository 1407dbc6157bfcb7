package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"quaver/internal/quality"
)

// WriteFile creates a fixture file of the given size under dir, creating
// intermediate directories as needed.
func WriteFile(t testing.TB, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// NewRecord builds a validated quality record for a fixture file with
// sensible CD-quality defaults.
func NewRecord(t testing.TB, path string, overrides ...func(*quality.Record)) *quality.Record {
	t.Helper()
	rec := quality.Record{
		Path:         path,
		Format:       "flac",
		Bitrate:      1_411_000,
		SampleRate:   44_100,
		BitDepth:     16,
		Channels:     2,
		Duration:     180,
		FileSize:     30_000_000,
		QualityScore: 90,
	}
	for _, override := range overrides {
		override(&rec)
	}
	validated, err := quality.NewRecord(rec, nil)
	if err != nil {
		t.Fatalf("NewRecord %s: %v", path, err)
	}
	return validated
}
