package cli

import (
	"github.com/alecthomas/kingpin/v2"
)

func (a *App) setupSnapshotCommand(kp *kingpin.Application) {
	cmd := kp.Command("snapshot", "take a new snapshot for the configured profile")

	cmd.Action(func(*kingpin.ParseContext) error {
		return a.runSnapshot()
	})
}

func (a *App) runSnapshot() error {
	store, err := a.loadConfig()
	if err != nil {
		return err
	}

	p := a.newPipeline(store)

	res, err := p.TakeSnapshot(noRepositoryContext())
	if err != nil {
		errorColor.Fprintf(a.stderr(), "snapshot failed: %v\n", err) //nolint:errcheck
		return err
	}

	switch {
	case !res.Created:
		defaultColor.Fprintln(a.stdout(), "no changes, nothing to snapshot") //nolint:errcheck
	case res.HadErrors:
		errorColor.Fprintf(a.stdout(), "snapshot %s created with errors\n", res.SID.DisplayID()) //nolint:errcheck
	default:
		okColor.Fprintf(a.stdout(), "snapshot %s created\n", res.SID.DisplayID()) //nolint:errcheck
	}

	log(noRepositoryContext()).Infof("snapshot command finished: created=%v errors=%v", res.Created, res.HadErrors)

	return nil
}
