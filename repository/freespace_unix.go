//go:build !windows

package repository

import (
	"syscall"

	"github.com/pkg/errors"
)

// StatFreeSpaceLocal statfs's path directly, for a local repository
// mounted on this host.
func StatFreeSpaceLocal(path string) (FreeSpace, error) {
	var st syscall.Statfs_t

	if err := syscall.Statfs(path, &st); err != nil {
		return FreeSpace{}, errors.Wrapf(err, "statfs %s", path)
	}

	freeBytes := uint64(st.Bavail) * uint64(st.Bsize)

	return newFreeSpace(freeBytes), nil
}
