// Package permissions captures and restores the (mode, owner, group) triple
// of every path under a snapshot's backup tree. Capture walks the tree
// depth-first with lstat (symlinks are recorded by their own metadata, never
// followed); restore reapplies a captured triple to a live path, emitting a
// callback for every chown/chgrp/chmod it actually performs.
//
// Grounded on the original tool's save_permissions/_save_path_info/
// _restore_path_info (_examples/original_source/common/test/
// test_snapshots.py, TestSavePermissions/TestSavePathInfo/
// TestRestorePathInfo) for the exact callback message strings and
// chown-then-chgrp-then-chmod ordering. lstat/chown access follows kopia's
// pattern of going straight to golang.org/x/sys/unix for raw Stat_t fields
// (there is no portable os-package way to read uid/gid without it).
package permissions

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/mscherer/backintime/fileinfo"
	"github.com/mscherer/backintime/idlookup"
)

// Callback receives one human-readable line per restore decision that was
// actually carried out (or attempted and failed).
type Callback func(line string)

// Identities collects the distinct user and group names Capture resolved
// while walking a tree, each mapped to the numeric id it resolved from.
// save_snapshot_info's "user.size"/"group.size" fields are the sizes of the
// serialized forms of these maps, mirroring the original tool's own
// per-snapshot user/group id-mapping files.
type Identities struct {
	Users  map[string]int
	Groups map[string]int
}

func newIdentities() *Identities {
	return &Identities{Users: map[string]int{}, Groups: map[string]int{}}
}

// serialize renders names as sorted "name id\n" lines, the same shape as the
// original tool's per-snapshot user/group mapping files.
func (m *Identities) serialize(names map[string]int) []byte {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var buf bytes.Buffer

	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(names[k]))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

// SerializeUsers renders the harvested user map as sorted "name uid\n" lines.
func (m *Identities) SerializeUsers() []byte { return m.serialize(m.Users) }

// SerializeGroups renders the harvested group map as sorted "name gid\n" lines.
func (m *Identities) SerializeGroups() []byte { return m.serialize(m.Groups) }

// Capture walks root depth-first, recording every path's (mode, owner-name,
// group-name) into store, keyed by the path relative to root. Directories
// are recorded along with everything else; symlinks are lstat'd, never
// followed. It returns every distinct user/group name resolved along the
// way, for callers that persist a per-snapshot identity mapping.
func Capture(root string, store *fileinfo.Store) (*Identities, error) {
	ids := newIdentities()

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		return captureOne(store, ids, []byte(rel), path)
	})

	return ids, err
}

func captureOne(store *fileinfo.Store, ids *Identities, key []byte, path string) error {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return errors.Wrapf(err, "lstat %s", path)
	}

	owner := idlookup.GetUserName(int(st.Uid))
	group := idlookup.GetGroupName(int(st.Gid))

	ids.Users[owner] = int(st.Uid)
	ids.Groups[group] = int(st.Gid)

	store.Record(key, uint32(st.Mode), []byte(owner), []byte(group))

	return nil
}

// RestorePathInfo reapplies the (mode, owner, group) recorded for key in
// store onto livePath, comparing against livePath's own current lstat.
// Missing/renamed users or groups on the restoring host degrade to leaving
// that id alone (the current numeric id is used as idlookup's fallback).
//
// Order, per entry: chown (uid and gid together) if either uid or gid
// differs; then chmod if mode differs. Each attempted operation is reported
// via cb regardless of outcome, a failed one with the underlying error
// appended. An EPERM failure is remembered and, after the remaining steps
// for this path, returned as the error IsPermissionFailure recognizes; any
// other failure is returned at once, skipping the remaining steps.
func RestorePathInfo(key []byte, livePath string, store *fileinfo.Store, cb Callback) error {
	entry, ok := store.Lookup(key)
	if !ok {
		return nil
	}

	var st unix.Stat_t
	if err := unix.Lstat(livePath, &st); err != nil {
		return errors.Wrapf(err, "lstat %s", livePath)
	}

	currentUID := int(st.Uid)
	currentGID := int(st.Gid)
	currentMode := uint32(st.Mode)

	wantUID := idlookup.GetUID(entry.Owner, currentUID)
	wantGID := idlookup.GetGID(entry.Group, currentGID)

	var failed bool

	switch {
	case wantUID != currentUID || wantGID != currentGID:
		if err := unix.Lchown(livePath, wantUID, wantGID); err != nil {
			cb(chownLine(livePath, wantUID, wantGID) + " : " + errString(err))

			if isEPERM(err) {
				failed = true
			} else {
				return errors.Wrapf(err, "chown %s", livePath)
			}
		} else {
			cb(chownLine(livePath, wantUID, wantGID))
		}

	case wantGID != currentGID:
		if err := unix.Lchown(livePath, -1, wantGID); err != nil {
			cb("chgrp " + livePath + " " + strconv.Itoa(wantGID) + " : " + errString(err))

			if isEPERM(err) {
				failed = true
			} else {
				return errors.Wrapf(err, "chgrp %s", livePath)
			}
		} else {
			cb("chgrp " + livePath + " " + strconv.Itoa(wantGID))
		}
	}

	if currentMode != entry.Mode {
		if err := unix.Chmod(livePath, entry.Mode&0o7777); err != nil {
			cb("chmod " + livePath + " " + strconv.FormatUint(uint64(entry.Mode), 8) + " : " + errString(err))

			if isEPERM(err) {
				failed = true
			} else {
				return errors.Wrapf(err, "chmod %s", livePath)
			}
		} else {
			cb("chmod " + livePath + " " + strconv.FormatUint(uint64(entry.Mode), 8))
		}
	}

	if failed {
		return errRestorePermissionFailed
	}

	return nil
}

var errRestorePermissionFailed = errors.New("restore permission failed")

// IsPermissionFailure reports whether err is the sentinel RestorePathInfo
// returns when a chown/chgrp/chmod attempt failed with EPERM. Callers that
// track an overall "had errors" flag across a whole restore should test for
// this rather than treating every non-nil error identically.
func IsPermissionFailure(err error) bool {
	return errors.Is(err, errRestorePermissionFailed)
}

func chownLine(path string, uid, gid int) string {
	return "chown " + path + " " + strconv.Itoa(uid) + " : " + strconv.Itoa(gid)
}

func isEPERM(err error) bool {
	return errors.Is(err, syscall.EPERM)
}

func errString(err error) string {
	return err.Error()
}
