// Package syncer builds the argument vector for, and parses the streaming
// output of, the external file-synchronization tool (conventionally rsync)
// that performs the actual hardlink-based copy. It also drives the
// subprocess itself.
//
// Argument shapes are grounded byte-for-byte on the original tool's
// rsyncExclude/rsyncInclude/rsyncSuffix/rsync_remote_path tests
// (_examples/original_source/common/test/test_snapshots.py,
// test_rsyncInclude_unique_items / test_rsyncSuffix / test_rsync_remote_path).
// The subprocess-spawning idiom follows kopia's internal/osexec package
// (github.com/kopia/kopia/internal/osexec), which wraps os/exec.Cmd with a
// platform SysProcAttr so signals are not propagated unexpectedly to the
// child.
package syncer

import (
	"strings"
)

// Mode is the configured snapshot transport mode.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeSSH   Mode = "ssh"
)

// IncludeKind distinguishes a whole directory tree from a single file/item.
type IncludeKind int

const (
	KindDirectoryTree IncludeKind = 0
	KindSingleItem    IncludeKind = 1
)

// IncludeEntry is one configured include: a path plus what kind of thing it
// names.
type IncludeEntry struct {
	Path string
	Kind IncludeKind
}

// ExcludeArgs renders patterns as "--exclude=<p>" in first-seen order,
// dropping subsequent duplicates.
func ExcludeArgs(patterns []string) []string {
	return dedupMap(patterns, func(p string) string { return "--exclude=" + p })
}

// IncludeArgs renders entries into the two include-argument lists spec.md
// §4.E describes: list 1 carries the ancestor-directory "--include=.../ "
// lines needed so rsync descends into the tree at all; list 2 carries the
// terminal include for each entry itself.
func IncludeArgs(entries []IncludeEntry) (list1, list2 []string) {
	seen1 := map[string]bool{}
	seen2 := map[string]bool{}

	for _, e := range entries {
		if e.Path == "/" {
			if !seen2["--include=/"] {
				list2 = append(list2, "--include=/")
				seen2["--include=/"] = true
			}

			if !seen2["--include=/**"] {
				list2 = append(list2, "--include=/**")
				seen2["--include=/**"] = true
			}

			continue
		}

		for _, anc := range ancestorChain(e.Path, e.Kind == KindDirectoryTree) {
			arg := "--include=" + anc + "/"
			if !seen1[arg] {
				list1 = append(list1, arg)
				seen1[arg] = true
			}
		}

		var arg string
		if e.Kind == KindDirectoryTree {
			arg = "--include=" + e.Path + "/**"
		} else {
			arg = "--include=" + e.Path
		}

		if !seen2[arg] {
			list2 = append(list2, arg)
			seen2[arg] = true
		}
	}

	return list1, list2
}

// ancestorChain returns path's directory ancestors, deepest first, down to
// (but not including) "/". If includeSelf is true, path itself is the first
// element returned.
func ancestorChain(path string, includeSelf bool) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	n := len(parts)
	start := n - 1

	if !includeSelf {
		start = n - 2
	}

	var out []string

	for i := start; i >= 0; i-- {
		out = append(out, "/"+strings.Join(parts[:i+1], "/"))
	}

	return out
}

// Protected repository paths that are always excluded from a backup run so
// a profile can never back up (and thus later restore permissions over)
// its own state directories.
var (
	tempDirExclude  = "/tmp/"
	stateDirExclude = ".local/share/backintime"
	mountDirExclude = ".local/share/backintime/mnt"
)

// SuffixArgs assembles the fixed-order argument tail: chmod, the hardcoded
// repository-protection excludes, include list 1, the user's excludes,
// include list 2, and finally the anchoring "--exclude=* /".
func SuffixArgs(includeEntries []IncludeEntry, userExcludes []string) []string {
	list1, list2 := IncludeArgs(includeEntries)

	args := []string{"--chmod=Du+wx"}
	args = append(args, "--exclude="+tempDirExclude)
	args = append(args, "--exclude="+stateDirExclude)
	args = append(args, "--exclude="+mountDirExclude)
	args = append(args, list1...)
	args = append(args, ExcludeArgs(userExcludes)...)
	args = append(args, list2...)
	args = append(args, "--exclude=*")
	args = append(args, "/")

	return args
}

// RemotePath renders p for inclusion in an rsync argv. ModeLocal is always
// a passthrough regardless of useMode (there is no remote host to address);
// for any other mode, p is prefixed "user@host:" with only the path portion
// quoted when mode appears in useMode, and returned verbatim (quoted if
// requested) otherwise. useMode defaults to []Mode{ModeSSH} at call sites
// that don't need to override it.
func RemotePath(p string, mode Mode, sshUser, sshHost string, useMode []Mode, quote string) string {
	if mode == ModeLocal {
		return quote + p + quote
	}

	for _, m := range useMode {
		if m == mode {
			return sshUser + "@" + sshHost + ":" + quote + p + quote
		}
	}

	return quote + p + quote
}

// DefaultUseMode is the use-mode list callers pass when they want the
// ordinary "prefix only for ssh" behavior.
var DefaultUseMode = []Mode{ModeSSH}

func dedupMap(items []string, render func(string) string) []string {
	seen := map[string]bool{}

	var out []string

	for _, it := range items {
		if seen[it] {
			continue
		}

		seen[it] = true

		out = append(out, render(it))
	}

	return out
}
