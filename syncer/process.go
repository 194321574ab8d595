package syncer

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mscherer/backintime/internal/osexec"
	"github.com/mscherer/backintime/logging"
)

// Run spawns name(argv...), feeds its stdout through StreamLines/Callback as
// it arrives, and waits for it to exit. Stdout is drained (in an errgroup
// goroutine) while the child runs, so a full stdout pipe buffer does not
// stall the syncer; the process is waited on once its stdout reaches EOF.
// Stderr is collected in memory and logged only if the syncer exits
// non-zero.
//
// The returned error is non-nil only for a failure to launch or wait on the
// process, or for a line-processing error (e.g. a write failure on the
// message/log sink); a non-zero syncer exit code alone is reported through
// Flags.ErrorSeen via the callback protocol's own classification of the
// lines it emitted, not as a Go error.
func Run(ctx context.Context, name string, argv []string, sink *Sink, log logging.Logger, flags *Flags) error {
	cmd := exec.CommandContext(ctx, name, argv...)
	osexec.DisableInterruptSignal(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "opening syncer stdout")
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "starting syncer")
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return StreamLines(stdout, sink, log, flags)
	})

	if err := g.Wait(); err != nil {
		_ = cmd.Wait()
		return errors.Wrap(err, "draining syncer output")
	}

	if err := cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return errors.Wrap(err, "waiting for syncer")
		}

		if stderr.Len() > 0 {
			log.Error("syncer stderr: " + stderr.String())
		}
	}

	return nil
}
