package cli

import (
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/mscherer/backintime/fileinfo"
	"github.com/mscherer/backintime/permissions"
	"github.com/mscherer/backintime/snapshot"
)

func (a *App) setupRestoreCommand(kp *kingpin.Application) {
	var sidArg, destArg string

	cmd := kp.Command("restore-permissions", "reapply a snapshot's captured owner/group/mode onto a live tree")
	cmd.Arg("sid", "snapshot id the permissions were captured from").Required().StringVar(&sidArg)
	cmd.Arg("dest", "live directory to restore permissions onto").Required().StringVar(&destArg)

	cmd.Action(func(*kingpin.ParseContext) error {
		return a.runRestorePermissions(sidArg, destArg)
	})
}

func (a *App) runRestorePermissions(sidArg, destArg string) error {
	ids, err := a.repo().ListSnapshots(false, false)
	if err != nil {
		return err
	}

	var found bool

	store := fileinfo.New()

	for _, id := range ids {
		if id.String() != sidArg {
			continue
		}

		found = true

		if err := store.LoadFile(id.Path(snapshot.FileFileInfo)); err != nil {
			return err
		}
	}

	if !found {
		errorColor.Fprintf(a.stderr(), "no such snapshot: %s\n", sidArg) //nolint:errcheck
		return nil
	}

	var failures int

	store.Range(func(path []byte, _ fileinfo.Entry) bool {
		live := filepath.Join(destArg, string(path))

		err := permissions.RestorePathInfo(path, live, store, func(line string) {
			defaultColor.Fprintf(a.stdout(), "%s\n", line) //nolint:errcheck
		})
		if err != nil {
			failures++
			errorColor.Fprintf(a.stderr(), "%s: %v\n", live, err) //nolint:errcheck
		}

		return true
	})

	if failures > 0 {
		errorColor.Fprintf(a.stderr(), "%d path(s) failed to restore\n", failures) //nolint:errcheck
	} else {
		okColor.Fprintln(a.stdout(), "permissions restored") //nolint:errcheck
	}

	return nil
}
