package vault

import "path/filepath"

// Paths holds the filesystem locations every operation needs, per
// spec.md §4.6: the storage directory and the system-file path. Temp files
// used for atomic rewrites are named by vaultio.WriteFileAtomic itself
// (`<target>.tmp-<uuid>`), not rooted at a fixed path.
type Paths struct {
	StorageDir string
	SystemPath string
}

// NewPaths derives SystemPath from storageDir.
func NewPaths(storageDir string) Paths {
	return Paths{
		StorageDir: storageDir,
		SystemPath: filepath.Join(storageDir, "system"),
	}
}

// ItemPath joins a derived item filename onto the storage directory.
func (p Paths) ItemPath(derivedName string) string {
	return filepath.Join(p.StorageDir, derivedName)
}
