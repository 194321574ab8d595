package snapshot

import (
	"os"
	"path/filepath"
)

// Auxiliary file names living directly under a SID directory.
const (
	FileConfig   = "config"
	FileInfo     = "info"
	FileFileInfo = "fileinfo.bz2"
	FileLog      = "takesnapshot.log.bz2"
	FileName     = "name"
	FileFailed   = "failed"
	FileContinue = "save_to_continue"
	FileUser     = "user"
	FileGroup    = "group"

	// BackupDirName is the payload root inside a SID directory.
	BackupDirName = "backup"
)

// dirName returns the on-disk directory name for id: the reserved New
// directory name, "/" for Root, or the canonical string for a real SID.
func (id ID) dirName() string {
	switch id.kind {
	case kindReal:
		return id.raw
	case kindNew:
		return NewDirName
	case kindRoot:
		return string(filepath.Separator)
	default:
		return ""
	}
}

// Path joins parts under id's own directory: {repo}/{sid}/{parts...}. For
// the Root sentinel this resolves under "/".
func (id ID) Path(parts ...string) string {
	if id.kind == kindRoot {
		return filepath.Join(append([]string{string(filepath.Separator)}, parts...)...)
	}

	base := filepath.Join(id.repo.Root(), id.dirName())

	return filepath.Join(append([]string{base}, parts...)...)
}

// BackupPath joins parts under id's payload root: {repo}/{sid}/backup/{parts...}.
// For Root it is equivalent to Path (the live filesystem has no "backup/"
// indirection).
func (id ID) BackupPath(parts ...string) string {
	if id.kind == kindRoot {
		return id.Path(parts...)
	}

	return id.Path(append([]string{BackupDirName}, parts...)...)
}

// MakeDirs idempotently creates id's backup payload root, plus any optional
// subpath components, equivalent to "mkdir -p".
func (id ID) MakeDirs(subparts ...string) error {
	return os.MkdirAll(id.BackupPath(subparts...), 0o755)
}

// Exists reports whether id's directory is present and "valid": it has a
// backup/ subdirectory (for real SIDs and New) or, for Root, always exists.
func (id ID) Exists() bool {
	if id.kind == kindRoot {
		return true
	}

	info, err := os.Stat(id.BackupPath())

	return err == nil && info.IsDir()
}

// HasMarker reports whether the zero-length marker file name exists under
// id's directory (used for "failed" and "save_to_continue").
func (id ID) HasMarker(name string) bool {
	_, err := os.Stat(id.Path(name))
	return err == nil
}

// Failed reports whether this snapshot carries the "failed" marker.
func (id ID) Failed() bool { return id.HasMarker(FileFailed) }

// DisplayName concatenates DisplayID with the contents of the "name" file
// (if present) and, if the snapshot is marked failed, an " (failed)" suffix.
func (id ID) DisplayName() string {
	out := id.DisplayID()

	if name, err := os.ReadFile(id.Path(FileName)); err == nil && len(name) > 0 {
		out += " - " + string(name)
	}

	if id.Failed() {
		out += " (failed)"
	}

	return out
}

// MakeWritable flips the user-write bit on id's directory so a sealed
// (read-only) snapshot can be mutated — the explicit step spec.md §3
// requires before any mutation of a sealed snapshot.
func (id ID) MakeWritable() error {
	dir := id.Path()

	info, err := os.Stat(dir)
	if err != nil {
		return err
	}

	return os.Chmod(dir, info.Mode()|0o200)
}

// Delete removes id's entire directory tree. Because rsync preserves the
// original source permissions (including read-only directories) under
// backup/, a plain os.RemoveAll can fail partway through with EACCES; Delete
// walks the tree first and adds the user-write bit to every directory
// before removing anything, the same make-writable-then-delete order the
// original tool's remove_snapshot uses.
func (id ID) Delete() error {
	root := id.Path()

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if !info.IsDir() {
			return nil
		}

		return os.Chmod(path, info.Mode()|0o300)
	})
	if err != nil {
		return err
	}

	return os.RemoveAll(root)
}
