// Package pipeline drives one take-snapshot run end to end: acquire the
// lock, decide whether to resume or discard a leftover working directory,
// snapshot the configuration, look up the previous snapshot for
// --link-dest, build and run the syncer, capture permissions, seal the
// result, and update the last-snapshot symlink.
//
// Grounded on the original tool's take_snapshot orchestration
// (_examples/original_source/common/test/test_take_snapshot.py) for step
// order and failure semantics, and on kopia's top-level upload driver
// (github.com/kopia/kopia/snapshot/snapshotfs, which sequences
// lock/scan/upload/seal the same way) for the Go control-flow shape.
package pipeline

import (
	"context"
	"io"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mscherer/backintime/config"
	"github.com/mscherer/backintime/fileinfo"
	"github.com/mscherer/backintime/internal/metrics"
	"github.com/mscherer/backintime/lock"
	"github.com/mscherer/backintime/logging"
	"github.com/mscherer/backintime/permissions"
	"github.com/mscherer/backintime/repository"
	"github.com/mscherer/backintime/snapshot"
	"github.com/mscherer/backintime/syncer"
)

var log = logging.Module("backintime/pipeline")

// Instruments are the Prometheus collectors a Pipeline reports to. Build
// one with NewInstruments(nil) to disable instrumentation entirely: every
// method on a nil-backed collector is a safe no-op.
type Instruments struct {
	Runs     *metrics.Counter
	Failures *metrics.Counter
	Duration *metrics.Histogram
}

// NewInstruments registers the pipeline's collectors against reg (which
// may be nil to disable instrumentation).
func NewInstruments(reg *metrics.Registry) Instruments {
	return Instruments{
		Runs:     reg.CounterInt64("pipeline_runs", "number of take-snapshot pipeline runs started", nil),
		Failures: reg.CounterInt64("pipeline_failures", "number of take-snapshot pipeline runs that recorded an error", nil),
		Duration: reg.DurationHistogram("pipeline_run_duration", "wall-clock duration of a take-snapshot run", metrics.PipelineDurationBuckets, nil),
	}
}

// Pipeline ties every component package together for one profile.
type Pipeline struct {
	Repo   *repository.Repo
	Config config.Store
	Lock   *lock.Manager
	Instr  Instruments

	// SyncerBinary is the external tool invoked to perform the actual
	// copy; New defaults it to "rsync".
	SyncerBinary string

	// Now is injected so tests can pin the reference instant; production
	// callers leave it nil to use time.Now.
	Now func() time.Time
}

// New returns a Pipeline wired to repo/cfg, with a lock manager bound to
// cfg's configured lock file path.
func New(repo *repository.Repo, cfg config.Store, instr Instruments) *Pipeline {
	return &Pipeline{
		Repo:         repo,
		Config:       cfg,
		Lock:         lock.New(cfg.LockFilePath()),
		Instr:        instr,
		SyncerBinary: "rsync",
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now()
}

// Result is the outcome of one TakeSnapshot call.
type Result struct {
	Created   bool
	HadErrors bool
	SID       snapshot.ID
}

// TakeSnapshot runs the full take-snapshot pipeline: acquire the lock,
// prepare the working directory, copy the config, find the previous
// snapshot, run the syncer, capture permissions, write the info file, seal,
// and update the last-snapshot symlink.
func (p *Pipeline) TakeSnapshot(ctx context.Context) (Result, error) {
	runID := uuid.NewString()
	runLog := log(ctx)

	start := p.now()

	p.Instr.Runs.Add(1)

	defer func() {
		p.Instr.Duration.Observe(p.now().Sub(start))
	}()

	runLog.Infof("starting take-snapshot run %s", runID)

	// Step 1: acquire the cross-process exclusive lock.
	if err := p.Lock.AcquireExclusive(); err != nil {
		p.Instr.Failures.Add(1)
		return Result{}, errors.Wrap(err, "acquiring lock")
	}
	defer p.Lock.Release()

	newSID := snapshot.NewOf(p.Repo)

	// Step 2: decide whether to reuse or discard the working directory.
	if err := p.prepareWorkingDir(newSID); err != nil {
		p.Instr.Failures.Add(1)
		return Result{false, true, snapshot.ID{}}, errors.Wrap(err, "preparing working directory")
	}

	// Step 3: snapshot the active configuration.
	if err := p.snapshotConfig(newSID); err != nil {
		p.Instr.Failures.Add(1)
		return Result{false, true, snapshot.ID{}}, errors.Wrap(err, "snapshotting configuration")
	}

	// Step 4: find the previous sealed SID, if any.
	prevSID, hasPrev, err := p.Repo.LastSnapshot()
	if err != nil {
		p.Instr.Failures.Add(1)
		return Result{false, true, snapshot.ID{}}, errors.Wrap(err, "looking up previous snapshot")
	}

	// Step 5: build the syncer argument vector.
	argv := p.buildArgv(newSID, prevSID, hasPrev)

	// Step 6: spawn the syncer and stream its output through the callback
	// protocol into the run log and the message file.
	logFile, err := os.OpenFile(newSID.Path(snapshot.FileLog), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		p.Instr.Failures.Add(1)
		return Result{false, true, snapshot.ID{}}, errors.Wrap(err, "opening run log")
	}

	sink := syncer.OpenSink(p.Config.MessageFilePath(), newSID.Path(snapshot.FileLog), logFile)

	flags := &syncer.Flags{}
	runErr := syncer.Run(ctx, p.SyncerBinary, argv, sink, runLog, flags)

	if err := sink.Close(); err != nil {
		runLog.Errorf("closing run log: %v", err)
	}

	hadErrors := flags.ErrorSeen || runErr != nil
	if runErr != nil {
		runLog.Errorf("syncer run failed: %v", runErr)
	}

	// Step 7: decide whether anything changed.
	changed := flags.ChangeSeen || p.Config.TakeSnapshotRegardlessOfChanges()
	if !changed {
		runLog.Infof("no changes detected, discarding working directory")
		os.RemoveAll(newSID.Path())

		return Result{false, hadErrors, snapshot.ID{}}, nil
	}

	// Step 8: capture permissions and write the File-Info Store.
	store := fileinfo.New()

	ids, err := permissions.Capture(newSID.BackupPath(), store)
	if err != nil {
		hadErrors = true
		runLog.Errorf("capturing permissions failed: %v", err)
	}

	if err := store.SaveFile(newSID.Path(snapshot.FileFileInfo)); err != nil {
		hadErrors = true
		runLog.Errorf("saving file-info store failed: %v", err)
	}

	userSize, groupSize, err := p.saveIdentityMaps(newSID, ids)
	if err != nil {
		hadErrors = true
		runLog.Errorf("saving user/group id maps failed: %v", err)
	}

	// Step 9: write the info file.
	if err := p.writeInfoFile(newSID, runID, userSize, groupSize, runLog); err != nil {
		hadErrors = true
		runLog.Errorf("writing info file failed: %v", err)
	}

	// Step 10: mark failed if errors were seen, so a reader can tell a
	// sealed snapshot apart from a clean one without replaying the log.
	if hadErrors {
		touch(newSID.Path(snapshot.FileFailed))
	}

	// Step 11: seal by renaming new/ to the real SID directory.
	sealedSID := snapshot.FromTime(p.Repo, p.now(), p.profileTag())

	if err := os.Rename(newSID.Path(), sealedSID.Path()); err != nil {
		p.Instr.Failures.Add(1)
		return Result{false, true, snapshot.ID{}}, errors.Wrap(err, "sealing snapshot")
	}

	// Step 12: update the last-snapshot symlink.
	if err := p.Repo.CreateLastSnapshotSymlink(sealedSID); err != nil {
		hadErrors = true
		runLog.Errorf("updating last-snapshot symlink failed: %v", err)
	}

	if hadErrors {
		p.Instr.Failures.Add(1)
	}

	runLog.Infof("completed take-snapshot run %s as %s", runID, sealedSID.String())

	// Step 13: release happens via defer; return the result.
	return Result{true, hadErrors, sealedSID}, nil
}

func (p *Pipeline) profileTag() int {
	tag, err := strconv.Atoi(p.Config.ProfileID())
	if err != nil {
		return 0
	}

	return tag
}

func (p *Pipeline) prepareWorkingDir(newSID snapshot.ID) error {
	if newSID.Exists() {
		if newSID.HasMarker(snapshot.FileContinue) {
			return nil // resume: keep contents as-is.
		}

		if err := os.RemoveAll(newSID.Path()); err != nil {
			return err
		}
	}

	return newSID.MakeDirs()
}

// configSource is implemented by a config.Store whose backing file can be
// copied verbatim; config.FileStore satisfies it.
type configSource interface {
	Path() string
}

func (p *Pipeline) snapshotConfig(newSID snapshot.ID) error {
	fs, ok := p.Config.(configSource)
	if !ok {
		return nil
	}

	src, err := os.Open(fs.Path())
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(newSID.Path(snapshot.FileConfig))
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)

	return err
}

func (p *Pipeline) buildArgv(newSID, prevSID snapshot.ID, hasPrev bool) []string {
	var entries []syncer.IncludeEntry
	for _, e := range p.Config.Include() {
		entries = append(entries, syncer.IncludeEntry{Path: e.Path, Kind: syncer.IncludeKind(e.Kind)})
	}

	args := []string{"-rtDgoptv", "--delete", "--delete-excluded", "--out-format=BACKINTIME: %i %n%L"}

	if hasPrev {
		args = append(args, "--link-dest="+prevSID.BackupPath())
	}

	args = append(args, syncer.SuffixArgs(entries, p.Config.Exclude())...)
	args = append(args, newSID.BackupPath())

	return args
}

// saveIdentityMaps persists ids' user and group name->id maps alongside the
// snapshot's fileinfo store and returns the byte size of each serialized
// form, which the info file records as "user.size"/"group.size" - the same
// fields the original tool's save_snapshot_info writes.
func (p *Pipeline) saveIdentityMaps(newSID snapshot.ID, ids *permissions.Identities) (userSize, groupSize int, err error) {
	if ids == nil {
		ids = &permissions.Identities{}
	}

	users := ids.SerializeUsers()
	groups := ids.SerializeGroups()

	if err := os.WriteFile(newSID.Path(snapshot.FileUser), users, 0o644); err != nil {
		return 0, 0, errors.Wrap(err, "writing user id map")
	}

	if err := os.WriteFile(newSID.Path(snapshot.FileGroup), groups, 0o644); err != nil {
		return 0, 0, errors.Wrap(err, "writing group id map")
	}

	return len(users), len(groups), nil
}

func (p *Pipeline) writeInfoFile(newSID snapshot.ID, runID string, userSize, groupSize int, runLog logging.Logger) error {
	f, err := os.Create(newSID.Path(snapshot.FileInfo))
	if err != nil {
		return err
	}
	defer f.Close()

	hostname, _ := os.Hostname()

	snapshotUser := "-"
	if u, err := user.Current(); err == nil {
		snapshotUser = u.Username
	}

	var includePaths []string
	for _, e := range p.Config.Include() {
		includePaths = append(includePaths, e.Path)
	}

	mounts, err := repository.FilesystemMounts(includePaths)
	if err != nil {
		runLog.Warnf("resolving filesystem mounts: %v", err)
	}

	_, err = f.WriteString(
		"snapshot_date=" + p.now().Format("2006-01-02 15:04:05") + "\n" +
			"snapshot_machine=" + hostname + "\n" +
			"snapshot_profile_id=" + p.Config.ProfileID() + "\n" +
			"snapshot_tag=" + p.Config.ProfileID() + "\n" +
			"snapshot_user=" + snapshotUser + "\n" +
			"snapshot_version=" + p.Config.Version() + "\n" +
			"snapshot_run_id=" + runID + "\n" +
			"filesystem_mounts=" + mounts + "\n" +
			"user.size=" + strconv.Itoa(userSize) + "\n" +
			"group.size=" + strconv.Itoa(groupSize) + "\n")

	return err
}

func touch(path string) {
	f, err := os.Create(path)
	if err == nil {
		f.Close()
	}
}
