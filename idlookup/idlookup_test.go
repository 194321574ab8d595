package idlookup_test

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mscherer/backintime/idlookup"
)

func currentUser(t *testing.T) *user.User {
	t.Helper()

	u, err := user.Current()
	require.NoError(t, err)

	return u
}

func TestGetUIDValid(t *testing.T) {
	u := currentUser(t)
	uid, err := strconv.Atoi(u.Uid)
	require.NoError(t, err)

	require.Equal(t, uid, idlookup.GetUID(u.Username))
	require.Equal(t, uid, idlookup.GetUID([]byte(u.Username)))
}

func TestGetUIDInvalid(t *testing.T) {
	require.Equal(t, idlookup.Unknown, idlookup.GetUID("nonExistingUser12345"))
	require.Equal(t, idlookup.Unknown, idlookup.GetUID([]byte("nonExistingUser12345")))
}

func TestGetUIDBackup(t *testing.T) {
	require.Equal(t, 99999, idlookup.GetUID("nonExistingUser12345", 99999))
	require.Equal(t, 99999, idlookup.GetUID([]byte("nonExistingUser12345"), 99999))
}

func TestGetUserNameInvalid(t *testing.T) {
	require.Equal(t, idlookup.UnknownName, idlookup.GetUserName(3999999))
}

func TestGetGroupNameInvalid(t *testing.T) {
	require.Equal(t, idlookup.UnknownName, idlookup.GetGroupName(3999999))
}
