package cli

import (
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/mscherer/backintime/retention"
)

func (a *App) setupRemoveCommand(kp *kingpin.Application) {
	var (
		sidArg                                         string
		keepAll, keepPerDay, keepPerWeek, keepPerMonth int
		dryRun                                          bool
	)

	removeOne := kp.Command("remove", "remove a single snapshot by id")
	removeOne.Arg("sid", "snapshot id to remove, e.g. 20240301-100000-001").Required().StringVar(&sidArg)
	removeOne.Action(func(*kingpin.ParseContext) error {
		return a.runRemove(sidArg)
	})

	smart := kp.Command("smart-remove", "thin old snapshots per the keep-all/day/week/month policy")
	smart.Flag("keep-all", "days of full-density history to always keep").Default("2").IntVar(&keepAll)
	smart.Flag("keep-per-day", "days to keep at most one snapshot per day").Default("7").IntVar(&keepPerDay)
	smart.Flag("keep-per-week", "weeks to keep at most one snapshot per week").Default("4").IntVar(&keepPerWeek)
	smart.Flag("keep-per-month", "months to keep at most one snapshot per month").Default("24").IntVar(&keepPerMonth)
	smart.Flag("dry-run", "print what would be removed without removing it").BoolVar(&dryRun)
	smart.Action(func(*kingpin.ParseContext) error {
		return a.runSmartRemove(keepAll, keepPerDay, keepPerWeek, keepPerMonth, dryRun)
	})
}

func (a *App) runRemove(sidArg string) error {
	ids, err := a.repo().ListSnapshots(false, false)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id.String() != sidArg {
			continue
		}

		if err := id.MakeWritable(); err != nil {
			return err
		}

		if err := id.Delete(); err != nil {
			return err
		}

		okColor.Fprintf(a.stdout(), "removed %s\n", sidArg) //nolint:errcheck

		return nil
	}

	errorColor.Fprintf(a.stderr(), "no such snapshot: %s\n", sidArg) //nolint:errcheck

	return nil
}

func (a *App) runSmartRemove(keepAll, keepPerDay, keepPerWeek, keepPerMonth int, dryRun bool) error {
	ids, err := a.repo().ListSnapshots(false, false)
	if err != nil {
		return err
	}

	dated := make([]retention.Dated, 0, len(ids))

	for _, id := range ids {
		when, err := id.Time(time.Local)
		if err != nil {
			continue
		}

		dated = append(dated, retention.Dated{ID: id, When: when})
	}

	toRemove := retention.SmartRemoveList(dated, time.Now(), keepAll, keepPerDay, keepPerWeek, keepPerMonth)

	for _, id := range toRemove {
		if dryRun {
			defaultColor.Fprintf(a.stdout(), "would remove %s\n", id.String()) //nolint:errcheck
			continue
		}

		if err := id.MakeWritable(); err != nil {
			errorColor.Fprintf(a.stderr(), "removing %s: %v\n", id.String(), err) //nolint:errcheck
			continue
		}

		if err := id.Delete(); err != nil {
			errorColor.Fprintf(a.stderr(), "removing %s: %v\n", id.String(), err) //nolint:errcheck
			continue
		}

		okColor.Fprintf(a.stdout(), "removed %s\n", id.String()) //nolint:errcheck
	}

	return nil
}
