package syncer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mscherer/backintime/logging"
	"github.com/mscherer/backintime/syncer"
)

var testLog = logging.Module("syncer_test")(context.Background())

func newSink(t *testing.T) (*syncer.Sink, string, string) {
	t.Helper()

	dir := t.TempDir()
	msgPath := filepath.Join(dir, "message")
	logPath := filepath.Join(dir, "log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)

	t.Cleanup(func() { logFile.Close() })

	return syncer.OpenSink(msgPath, logPath, logFile), msgPath, logPath
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(b)
}

func TestCallbackPlainLineIsInfo(t *testing.T) {
	sink, msgPath, logPath := newSink(t)
	flags := &syncer.Flags{}

	require.NoError(t, syncer.Callback(sink, testLog, flags, "building file list ..."))

	require.False(t, flags.ErrorSeen)
	require.False(t, flags.ChangeSeen)
	require.Equal(t, "0\nbuilding file list ...", readFile(t, msgPath))
	require.Equal(t, "[I] building file list ...\n", readFile(t, logPath))
}

func TestCallbackRsyncErrorLine(t *testing.T) {
	sink, msgPath, logPath := newSink(t)
	flags := &syncer.Flags{}

	require.NoError(t, syncer.Callback(sink, testLog, flags, "rsync: mkdir failed: permission denied"))

	require.True(t, flags.ErrorSeen)
	require.False(t, flags.ChangeSeen)
	require.Equal(t, "1\nError: rsync: mkdir failed: permission denied", readFile(t, msgPath))
	require.Equal(t, "[E] Error: rsync: mkdir failed: permission denied\n", readFile(t, logPath))
}

func TestCallbackTransferItemizationSetsChange(t *testing.T) {
	sink, msgPath, logPath := newSink(t)
	flags := &syncer.Flags{}

	require.NoError(t, syncer.Callback(sink, testLog, flags, "BACKINTIME: >f+++++++++ foo/bar.txt"))

	require.False(t, flags.ErrorSeen)
	require.True(t, flags.ChangeSeen)
	require.Equal(t, "0\n>f+++++++++ foo/bar.txt", readFile(t, msgPath))
	require.Equal(t, "[C] >f+++++++++ foo/bar.txt\n", readFile(t, logPath))
}

func TestCallbackHardlinkAndSymlinkCodesAreChanges(t *testing.T) {
	for _, code := range []string{"hf foo", "sf foo", "cL+++++++ foo -> bar"} {
		sink, _, _ := newSink(t)
		flags := &syncer.Flags{}

		require.NoError(t, syncer.Callback(sink, testLog, flags, "BACKINTIME: "+code))
		require.True(t, flags.ChangeSeen, "code %q should be classified as a change", code)
	}
}

func TestCallbackDirMetadataOnlyDoesNotSetChange(t *testing.T) {
	sink, msgPath, logPath := newSink(t)
	flags := &syncer.Flags{}

	require.NoError(t, syncer.Callback(sink, testLog, flags, "BACKINTIME: cd+++++++++ foo/"))

	require.False(t, flags.ErrorSeen)
	require.False(t, flags.ChangeSeen)
	require.Equal(t, "0\ncd+++++++++ foo/", readFile(t, msgPath))
	require.Equal(t, "[I] cd+++++++++ foo/\n", readFile(t, logPath))
}

func TestCallbackMessageFileOverwritesNotAppends(t *testing.T) {
	sink, msgPath, _ := newSink(t)
	flags := &syncer.Flags{}

	require.NoError(t, syncer.Callback(sink, testLog, flags, "first line"))
	require.NoError(t, syncer.Callback(sink, testLog, flags, "second line"))

	require.Equal(t, "0\nsecond line", readFile(t, msgPath))
}

func TestCallbackLogFileAppendsInArrivalOrder(t *testing.T) {
	sink, _, logPath := newSink(t)
	flags := &syncer.Flags{}

	require.NoError(t, syncer.Callback(sink, testLog, flags, "BACKINTIME: >f+++++++++ a"))
	require.NoError(t, syncer.Callback(sink, testLog, flags, "rsync: error text"))
	require.NoError(t, syncer.Callback(sink, testLog, flags, "BACKINTIME: >f+++++++++ b"))

	require.Equal(t,
		"[C] >f+++++++++ a\n[E] Error: rsync: error text\n[C] >f+++++++++ b\n",
		readFile(t, logPath))
}

func TestStreamLinesDrivesCallbackPerLine(t *testing.T) {
	sink, _, logPath := newSink(t)
	flags := &syncer.Flags{}

	input := "building file list ...\nBACKINTIME: >f+++++++++ a\nrsync: boom\n"

	require.NoError(t, syncer.StreamLines(strings.NewReader(input), sink, testLog, flags))
	require.True(t, flags.ErrorSeen)
	require.True(t, flags.ChangeSeen)
	require.Equal(t,
		"[I] building file list ...\n[C] >f+++++++++ a\n[E] Error: rsync: boom\n",
		readFile(t, logPath))
}
