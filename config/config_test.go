package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mscherer/backintime/config"
)

func TestFileStoreLoadParsesKeyValueLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := "# comment\n\nprofile.id = 3\nsnapshots.mode = ssh\nsnapshots.ssh.host = example.org\n" +
		"snapshots.include.1.value = /home/user\nsnapshots.include.1.type = 0\n" +
		"snapshots.exclude.1.value = /tmp\nmalformed line without equals\n" +
		"snapshots.continue_on_errors = true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := config.NewFileStore(path)
	require.NoError(t, s.Load())

	require.Equal(t, "3", s.ProfileID())
	require.True(t, s.SSHMode())
	require.Equal(t, "example.org", s.SSHHost())
	require.Equal(t, []config.IncludeEntry{{Path: "/home/user", Kind: 0}}, s.Include())
	require.Equal(t, []string{"/tmp"}, s.Exclude())
	require.True(t, s.ContinueOnErrors())
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	s := config.NewFileStore(path)
	s.Set("profile.id", "7")
	s.Set("snapshots.mode", "local")
	require.NoError(t, s.Save())

	loaded := config.NewFileStore(path)
	require.NoError(t, loaded.Load())
	require.Equal(t, "7", loaded.ProfileID())
	require.False(t, loaded.SSHMode())
}

func TestFileStoreDefaultsWhenUnset(t *testing.T) {
	s := config.NewFileStore(filepath.Join(t.TempDir(), "missing"))
	require.Equal(t, "1", s.ProfileID())
	require.False(t, s.SSHMode())
	require.Empty(t, s.Include())
	require.Empty(t, s.Exclude())
}
