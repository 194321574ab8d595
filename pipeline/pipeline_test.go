package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mscherer/backintime/config"
	"github.com/mscherer/backintime/pipeline"
	"github.com/mscherer/backintime/repository"
	"github.com/mscherer/backintime/snapshot"
)

// fakeSyncer writes a tiny shell script that behaves like rsync closely
// enough to exercise the pipeline: it creates the destination directory
// named last, prints one itemized transfer line in the "BACKINTIME: "
// out-format the pipeline requests, and optionally emits a single rsync:
// error line when FAKE_SYNCER_FAIL is set.
func fakeSyncer(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "rsync")

	script := `#!/bin/sh
dest=""
for a in "$@"; do dest="$a"; done
mkdir -p "$dest"
echo "BACKINTIME: >f+++++++++ changedfile"
if [ -n "$FAKE_SYNCER_FAIL" ]; then
  echo "rsync: some error (code 23)"
  exit 23
fi
exit 0
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return path
}

type fakeConfig struct {
	path string
	root string
}

func newFakeConfig(t *testing.T, repoRoot string) *fakeConfig {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(cfgPath, []byte("profile.id = 1\n"), 0o644))

	return &fakeConfig{path: cfgPath, root: repoRoot}
}

func (c *fakeConfig) Path() string { return c.path }

func (c *fakeConfig) ProfileID() string { return "1" }
func (c *fakeConfig) Version() string   { return "1" }

func (c *fakeConfig) SnapshotsPath() string { return c.root }
func (c *fakeConfig) SSHMode() bool         { return false }
func (c *fakeConfig) SSHHost() string       { return "" }
func (c *fakeConfig) SSHUser() string       { return "" }

func (c *fakeConfig) Include() []config.IncludeEntry {
	return []config.IncludeEntry{{Path: "/tmp/source", Kind: 0}}
}

func (c *fakeConfig) Exclude() []string { return nil }

func (c *fakeConfig) ContinueOnErrors() bool                 { return false }
func (c *fakeConfig) TakeSnapshotRegardlessOfChanges() bool  { return false }
func (c *fakeConfig) UseGlobalFlock() bool                   { return false }

func (c *fakeConfig) LockFilePath() string    { return filepath.Join(c.root, "lock") }
func (c *fakeConfig) MessageFilePath() string { return filepath.Join(c.root, "message") }
func (c *fakeConfig) LogFilePath() string     { return filepath.Join(c.root, "log") }

func newPipeline(t *testing.T) (*pipeline.Pipeline, *repository.Repo, string) {
	t.Helper()

	repoRoot := t.TempDir()
	repo := repository.New(repoRoot)
	cfg := newFakeConfig(t, repoRoot)

	p := pipeline.New(repo, cfg, pipeline.NewInstruments(nil))
	p.SyncerBinary = fakeSyncer(t)
	p.Now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	return p, repo, repoRoot
}

func TestTakeSnapshotSealsOnChange(t *testing.T) {
	p, repo, _ := newPipeline(t)

	res, err := p.TakeSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, res.Created)
	require.False(t, res.HadErrors)
	require.True(t, res.SID.IsReal())

	ids, err := repo.ListSnapshots(false, false)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.True(t, ids[0].Equal(res.SID))

	last, ok, err := repo.LastSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, last.Equal(res.SID))
}

func TestTakeSnapshotMarksFailedOnSyncerError(t *testing.T) {
	p, _, _ := newPipeline(t)
	t.Setenv("FAKE_SYNCER_FAIL", "1")

	res, err := p.TakeSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, res.Created)
	require.True(t, res.HadErrors)
	require.True(t, res.SID.HasMarker(snapshot.FileFailed))
}

func TestTakeSnapshotDiscardsWorkingDirWhenNothingChanged(t *testing.T) {
	repoRoot := t.TempDir()
	repo := repository.New(repoRoot)
	cfg := newFakeConfig(t, repoRoot)

	script := `#!/bin/sh
dest=""
for a in "$@"; do dest="$a"; done
mkdir -p "$dest"
exit 0
`
	dir := t.TempDir()
	binPath := filepath.Join(dir, "rsync")
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0o755))

	p := pipeline.New(repo, cfg, pipeline.NewInstruments(nil))
	p.SyncerBinary = binPath
	p.Now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	res, err := p.TakeSnapshot(context.Background())
	require.NoError(t, err)
	require.False(t, res.Created)
	require.False(t, res.HadErrors)

	ids, err := repo.ListSnapshots(true, false)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestTakeSnapshotResumesSavedWorkingDir(t *testing.T) {
	p, _, repoRoot := newPipeline(t)

	newDir := filepath.Join(repoRoot, snapshot.NewDirName)
	require.NoError(t, os.MkdirAll(filepath.Join(newDir, snapshot.BackupDirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, snapshot.FileContinue), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(newDir, snapshot.BackupDirName, "leftover"), []byte("x"), 0o644))

	res, err := p.TakeSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, res.Created)

	leftover := filepath.Join(res.SID.BackupPath(), "leftover")
	_, err = os.Stat(leftover)
	require.NoError(t, err, "resumed working directory should keep pre-existing contents")
}
