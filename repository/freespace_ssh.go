package repository

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// StatFreeSpaceSSH runs `df` over ssh against a remote repository mount
// and parses the available-blocks column, mirroring the local statfs
// check for remote-mode profiles. df is invoked with -P (POSIX output
// format) and -k (1024-byte blocks) so the column layout and units are
// fixed regardless of the remote's locale or df flavor.
func StatFreeSpaceSSH(ctx context.Context, sshUser, sshHost, remotePath string) (FreeSpace, error) {
	cmd := exec.CommandContext(ctx, "ssh", sshUser+"@"+sshHost, "df", "-P", "-k", remotePath)

	out, err := cmd.Output()
	if err != nil {
		return FreeSpace{}, errors.Wrap(err, "running remote df")
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return FreeSpace{}, errors.Errorf("unexpected df output: %q", string(out))
	}

	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 4 {
		return FreeSpace{}, errors.Errorf("unexpected df fields: %q", lines[len(lines)-1])
	}

	availableKB, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return FreeSpace{}, errors.Wrap(err, "parsing df available column")
	}

	return newFreeSpace(availableKB * 1024), nil
}
