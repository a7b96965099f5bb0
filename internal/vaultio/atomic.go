package vaultio

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/google/uuid"
)

// writeFull writes all of data to f, retrying on syscall.EINTR, matching
// spec.md §4.7/§5's EINTR-retry requirement for low-level writes.
func writeFull(f *os.File, data []byte) error {
	for len(data) > 0 {
		n, err := f.Write(data)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}

// WriteFileAtomic writes data to path by creating a uniquely-named temporary
// file in the same directory, writing and fsyncing it, then renaming it over
// path. The temp name embeds a UUID (google/uuid, already a teacher
// dependency) so concurrent invocations — out of scope functionally, but
// cheap to guard against — never collide on the same temp name.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp-" + uuid.New().String()

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("vaultio: create temp file: %w", err)
	}

	if err := writeFull(f, data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: fsync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("vaultio: rename temp file into place: %w", err)
	}

	return nil
}

// ReadFile reads the full contents of path. It exists alongside
// WriteFileAtomic so vaultio is the single package touching raw vault file
// I/O; callers never call os.ReadFile directly against vault paths.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vaultio: read file: %w", err)
	}
	return data, nil
}
