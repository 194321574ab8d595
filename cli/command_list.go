package cli

import (
	"github.com/alecthomas/kingpin/v2"
)

func (a *App) setupListCommand(kp *kingpin.Application) {
	var reverse bool

	cmd := kp.Command("list", "list the snapshots in the repository, oldest first")
	cmd.Flag("reverse", "list newest first").BoolVar(&reverse)

	cmd.Action(func(*kingpin.ParseContext) error {
		return a.runList(reverse)
	})
}

func (a *App) runList(reverse bool) error {
	ids, err := a.repo().ListSnapshots(false, reverse)
	if err != nil {
		return err
	}

	for _, id := range ids {
		a.printStdout("%s\n", id.DisplayName())
	}

	return nil
}
