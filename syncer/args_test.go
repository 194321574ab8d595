package syncer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mscherer/backintime/syncer"
)

func TestExcludeArgsDedup(t *testing.T) {
	got := syncer.ExcludeArgs([]string{"/foo", "*bar", "/baz/1", "/foo", "/baz/1"})
	require.Equal(t, []string{"--exclude=/foo", "--exclude=*bar", "--exclude=/baz/1"}, got)
}

func TestIncludeArgsUniqueItems(t *testing.T) {
	list1, list2 := syncer.IncludeArgs([]syncer.IncludeEntry{
		{Path: "/foo", Kind: syncer.KindDirectoryTree},
		{Path: "/bar", Kind: syncer.KindSingleItem},
		{Path: "/baz/1/2", Kind: syncer.KindSingleItem},
	})

	require.Equal(t, []string{"--include=/foo/", "--include=/baz/1/", "--include=/baz/"}, list1)
	require.Equal(t, []string{"--include=/foo/**", "--include=/bar", "--include=/baz/1/2"}, list2)
}

func TestIncludeArgsDuplicateItems(t *testing.T) {
	list1, list2 := syncer.IncludeArgs([]syncer.IncludeEntry{
		{Path: "/foo", Kind: syncer.KindDirectoryTree},
		{Path: "/bar", Kind: syncer.KindSingleItem},
		{Path: "/foo", Kind: syncer.KindDirectoryTree},
		{Path: "/baz/1/2", Kind: syncer.KindSingleItem},
		{Path: "/baz/1/2", Kind: syncer.KindSingleItem},
	})

	require.Equal(t, []string{"--include=/foo/", "--include=/baz/1/", "--include=/baz/"}, list1)
	require.Equal(t, []string{"--include=/foo/**", "--include=/bar", "--include=/baz/1/2"}, list2)
}

func TestIncludeArgsRoot(t *testing.T) {
	list1, list2 := syncer.IncludeArgs([]syncer.IncludeEntry{{Path: "/", Kind: syncer.KindDirectoryTree}})
	require.Empty(t, list1)
	require.Equal(t, []string{"--include=/", "--include=/**"}, list2)
}

func TestSuffixArgsOrder(t *testing.T) {
	args := syncer.SuffixArgs(
		[]syncer.IncludeEntry{
			{Path: "/foo", Kind: syncer.KindDirectoryTree},
			{Path: "/bar", Kind: syncer.KindSingleItem},
			{Path: "/baz/1/2", Kind: syncer.KindSingleItem},
		},
		[]string{"/foo/bar", "*blub", "/bar/2"},
	)

	joined := strings.Join(args, " ")
	require.True(t, strings.HasPrefix(joined, "--chmod=Du+wx --exclude=/tmp/ "))
	require.Contains(t, joined, "--exclude=.local/share/backintime ")
	require.Contains(t, joined, "--exclude=.local/share/backintime/mnt ")
	require.Contains(t, joined, "--include=/foo/ --include=/baz/1/ --include=/baz/ ")
	require.Contains(t, joined, "--exclude=/foo/bar --exclude=*blub --exclude=/bar/2 ")
	require.Contains(t, joined, "--include=/foo/** --include=/bar --include=/baz/1/2 ")
	require.True(t, strings.HasSuffix(joined, "--exclude=* /"))
}

func TestRemotePathLocalAlwaysPassthrough(t *testing.T) {
	require.Equal(t, "/foo", syncer.RemotePath("/foo", syncer.ModeLocal, "", "", syncer.DefaultUseMode, ""))
	require.Equal(t, `\"/foo\"`, syncer.RemotePath("/foo", syncer.ModeLocal, "", "", syncer.DefaultUseMode, `\"`))
	require.Equal(t, "/foo", syncer.RemotePath("/foo", syncer.ModeLocal, "", "", []syncer.Mode{syncer.ModeLocal}, ""))
}

func TestRemotePathSSH(t *testing.T) {
	require.Equal(t, "foo@localhost:/bar", syncer.RemotePath("/bar", syncer.ModeSSH, "foo", "localhost", syncer.DefaultUseMode, ""))
	require.Equal(t, `foo@localhost:\"/bar\"`, syncer.RemotePath("/bar", syncer.ModeSSH, "foo", "localhost", syncer.DefaultUseMode, `\"`))
	require.Equal(t, "/bar", syncer.RemotePath("/bar", syncer.ModeSSH, "foo", "localhost", nil, ""))
}
