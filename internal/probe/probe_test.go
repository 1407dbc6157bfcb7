package probe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExistsAndSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := OS()
	if !fs.Exists(path) {
		t.Fatal("expected file to exist")
	}
	if fs.Exists(filepath.Join(dir, "missing.mp3")) {
		t.Fatal("missing file reported as existing")
	}

	size, err := fs.Size(path)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != int64(len("audio bytes")) {
		t.Fatalf("unexpected size: %d", size)
	}
}

func TestRemovable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.flac")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := OS()
	if !fs.Removable(path) {
		t.Fatal("file in writable temp dir should be removable")
	}

	if os.Getuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	locked := filepath.Join(dir, "locked")
	if err := os.Mkdir(locked, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })
	if fs.Removable(filepath.Join(locked, "track.mp3")) {
		t.Fatal("file in read-only dir should not be removable")
	}
}

func TestFreeSpace(t *testing.T) {
	free, err := OS().FreeSpace(t.TempDir())
	if err != nil {
		t.Fatalf("FreeSpace: %v", err)
	}
	if free == 0 {
		t.Fatal("expected non-zero free space on temp volume")
	}
}

func TestCopyVerifiesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.flac")
	dst := filepath.Join(dir, "nested", "dst.flac")

	content := []byte("verified backup content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	fs := OS()
	if err := fs.Copy(src, dst); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := OS().Copy(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := OS()
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if fs.Exists(path) {
		t.Fatal("file still exists after Remove")
	}
}
