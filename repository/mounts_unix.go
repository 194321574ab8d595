//go:build !windows

package repository

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FilesystemMounts resolves each of paths to the mount point it actually
// lives on (the longest /proc/mounts entry whose path is a prefix), for the
// info file's "filesystem_mounts" field: a diagnostic record of which
// physical filesystem backed each included path during a run. Paths that
// resolve to the same mount point are reported once.
func FilesystemMounts(paths []string) (string, error) {
	mounts, err := readProcMounts("/proc/mounts")
	if err != nil {
		return "", errors.Wrap(err, "reading /proc/mounts")
	}

	seen := map[string]bool{}

	var entries []string

	for _, p := range paths {
		mp := longestMountPrefix(mounts, p)
		if mp == "" || seen[mp] {
			continue
		}

		seen[mp] = true

		entries = append(entries, mp)
	}

	sort.Strings(entries)

	return strings.Join(entries, ","), nil
}

func readProcMounts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mountPoints []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		mountPoints = append(mountPoints, fields[1])
	}

	return mountPoints, scanner.Err()
}

// longestMountPrefix returns the mount point in mounts that is the longest
// prefix of path, treating "/" as the universal fallback.
func longestMountPrefix(mounts []string, path string) string {
	best := ""

	for _, mp := range mounts {
		if mp == "/" {
			if best == "" {
				best = mp
			}

			continue
		}

		if (path == mp || strings.HasPrefix(path, mp+"/")) && len(mp) > len(best) {
			best = mp
		}
	}

	return best
}
