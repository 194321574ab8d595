package snapshot_test

import (
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mscherer/backintime/snapshot"
)

type fakeRepo struct{ root string }

func (r fakeRepo) Root() string { return r.root }

func TestParseValid(t *testing.T) {
	repo := fakeRepo{root: "/repo"}

	id1, err := snapshot.Parse(repo, "20151219-010324-123")
	require.NoError(t, err)
	require.Equal(t, "20151219-010324-123", id1.String())

	id2, err := snapshot.Parse(repo, "20151219-010324")
	require.NoError(t, err)
	require.Equal(t, "20151219-010324", id2.String())
}

func TestParseInvalid(t *testing.T) {
	repo := fakeRepo{root: "/repo"}

	_, err := snapshot.Parse(repo, "20151219-010324-1234")
	require.ErrorIs(t, err, snapshot.ErrInvalidFormat)

	_, err = snapshot.Parse(repo, "not-a-sid")
	require.ErrorIs(t, err, snapshot.ErrInvalidFormat)
}

func TestFromTime(t *testing.T) {
	repo := fakeRepo{root: "/repo"}
	ts := time.Date(2015, 12, 19, 1, 3, 24, 0, time.UTC)

	id := snapshot.FromTime(repo, ts, 123)
	require.Equal(t, "20151219-010324-123", id.String())
}

func TestOrderingSentinelsSortAboveReal(t *testing.T) {
	repo := fakeRepo{root: "/repo"}

	a, _ := snapshot.Parse(repo, "20160422-010324-123")
	b, _ := snapshot.Parse(repo, "20160424-215134-123")
	root := snapshot.RootOf(repo)
	nw := snapshot.NewOf(repo)

	ids := []snapshot.ID{nw, root, b, a}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	require.True(t, ids[0].Equal(a))
	require.True(t, ids[1].Equal(b))
	require.True(t, ids[2].Equal(root))
	require.True(t, ids[3].Equal(nw))
}

func TestOrderingIdempotent(t *testing.T) {
	repo := fakeRepo{root: "/repo"}
	raw := []string{"20160424-215134-123", "20160410-134327-123", "20160422-030324-123"}

	var ids []snapshot.ID

	for _, r := range raw {
		id, err := snapshot.Parse(repo, r)
		require.NoError(t, err)

		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	first := make([]string, len(ids))

	for i, id := range ids {
		first[i] = id.String()
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	second := make([]string, len(ids))

	for i, id := range ids {
		second[i] = id.String()
	}

	require.Equal(t, first, second)
}

func TestWithoutTagAndTag(t *testing.T) {
	repo := fakeRepo{root: "/repo"}
	id, err := snapshot.Parse(repo, "20151219-010324-123")
	require.NoError(t, err)

	tag, ok := id.Tag()
	require.True(t, ok)
	require.Equal(t, 123, tag)

	require.Equal(t, "20151219-010324", id.WithoutTag().String())
}

func TestPathsAndBackupPath(t *testing.T) {
	repo := fakeRepo{root: "/repo"}
	id, err := snapshot.Parse(repo, "20151219-010324-123")
	require.NoError(t, err)

	require.Equal(t, filepath.Join("/repo", "20151219-010324-123"), id.Path())
	require.Equal(t, filepath.Join("/repo", "20151219-010324-123", "backup"), id.BackupPath())
	require.Equal(t, filepath.Join("/repo", "20151219-010324-123", "backup", "foo"), id.BackupPath("foo"))
}

func TestRootAndNewPaths(t *testing.T) {
	repo := fakeRepo{root: "/repo"}

	root := snapshot.RootOf(repo)
	require.Equal(t, string(filepath.Separator), root.Path())

	nw := snapshot.NewOf(repo)
	require.Equal(t, filepath.Join("/repo", snapshot.NewDirName), nw.Path())
}

func TestDisplayID(t *testing.T) {
	repo := fakeRepo{root: "/repo"}
	id, err := snapshot.Parse(repo, "20151219-010324-123")
	require.NoError(t, err)

	require.Equal(t, "2015-12-19 01:03:24", id.DisplayID())
}
