// Package repository enumerates the sealed snapshots under a repository
// root, maintains the "last snapshot" convenience symlink, and reports
// free disk space before a run starts.
//
// Grounded on the original tool's get_snapshots_list/
// create_last_snapshot_symlink (_examples/original_source/common/test/
// test_snapshots.py, TestListSnapshots/TestCreateLastSnapshotSymlink) and
// on kopia's atomic-replace idiom for the symlink
// (github.com/natefinch/atomic, already a teacher dependency). Free-space
// formatting is wired to github.com/alecthomas/units the same way the
// teacher formats block sizes (cli/command_object_cleanup.go).
package repository

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/units"
	"github.com/pkg/errors"

	"github.com/mscherer/backintime/snapshot"
)

// LastSnapshotName is the fixed symlink name maintained under the
// repository root.
const LastSnapshotName = "last_snapshot"

// Repo is a concrete snapshot.Repo bound to a directory on disk.
type Repo struct {
	root string
}

// New returns a Repo rooted at root.
func New(root string) *Repo { return &Repo{root: root} }

// Root implements snapshot.Repo.
func (r *Repo) Root() string { return r.root }

// ListSnapshots scandirs the repository root, keeping only entries that
// match the SID grammar and have a backup/ subdirectory, sorted per
// snapshot.ID's ordering rules (ascending by default; reverse for
// most-recent-first). If includeNew is true and the New sentinel's
// directory exists, it is prepended (it always sorts last/most-recent in
// ascending order, so "prepended" only matters for reverse=true display).
func (r *Repo) ListSnapshots(includeNew, reverse bool) ([]snapshot.ID, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, errors.Wrap(err, "reading repository root")
	}

	var ids []snapshot.ID

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		id, err := snapshot.Parse(r, e.Name())
		if err != nil {
			continue
		}

		if id.Exists() {
			ids = append(ids, id)
		}
	}

	if includeNew {
		newID := snapshot.NewOf(r)
		if newID.Exists() {
			ids = append(ids, newID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	if reverse {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	return ids, nil
}

// LastSnapshot returns the most recent sealed SID, or the zero ID and
// false if the repository has none.
func (r *Repo) LastSnapshot() (snapshot.ID, bool, error) {
	ids, err := r.ListSnapshots(false, true)
	if err != nil {
		return snapshot.ID{}, false, err
	}

	if len(ids) == 0 {
		return snapshot.ID{}, false, nil
	}

	return ids[0], true, nil
}

// CreateLastSnapshotSymlink atomically replaces the repository's
// last_snapshot symlink so it points at sid's directory name. It is
// implemented as symlink-to-temp-name followed by rename, matching the
// temp-then-rename idiom natefinch/atomic uses for regular files (a
// symlink has no portable atomic-overwrite syscall on its own).
func (r *Repo) CreateLastSnapshotSymlink(sid snapshot.ID) error {
	target := sid.Path()
	linkPath := filepath.Join(r.root, LastSnapshotName)
	tmpPath := linkPath + ".tmp"

	_ = os.Remove(tmpPath)

	relTarget, err := filepath.Rel(r.root, target)
	if err != nil {
		relTarget = target
	}

	if err := os.Symlink(relTarget, tmpPath); err != nil {
		return errors.Wrap(err, "creating temporary last-snapshot symlink")
	}

	if err := os.Rename(tmpPath, linkPath); err != nil {
		return errors.Wrap(err, "renaming last-snapshot symlink into place")
	}

	return nil
}

// FreeSpace reports the free space available at path, formatted two ways:
// bytes (exact, for arithmetic) and a human-readable string (base-2
// units, e.g. "12.3 GiB") suitable for a pre-run CLI warning.
type FreeSpace struct {
	Bytes   uint64
	Display string
}

func newFreeSpace(freeBytes uint64) FreeSpace {
	return FreeSpace{Bytes: freeBytes, Display: units.BytesStringBase2(int64(freeBytes))}
}
