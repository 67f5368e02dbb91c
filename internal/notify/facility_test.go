package notify

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInboxListsNewestFirstAndNotifies(t *testing.T) {
	inbox := NewInbox()
	var changes int32
	inbox.OnChange(func() { atomic.AddInt32(&changes, 1) })

	require.NoError(t, inbox.Post(1, Notification{Key: 1, Title: "a"}))
	require.NoError(t, inbox.Post(2, Notification{Key: 2, Title: "b"}))
	require.NoError(t, inbox.Post(1, Notification{Key: 1, Title: "a2"}))

	list := inbox.List()
	require.Len(t, list, 2)
	require.Equal(t, "a2", list[0].Title)
	require.Equal(t, "b", list[1].Title)

	require.NoError(t, inbox.Cancel(2))
	require.NoError(t, inbox.Cancel(2))
	require.Equal(t, int32(4), atomic.LoadInt32(&changes))
}

func TestMultiPostsToPermittedMembers(t *testing.T) {
	a, b := NewInbox(), NewInbox()
	b.SetPermission(false)
	m := Multi{a, b}

	require.True(t, m.PermissionGranted())
	require.NoError(t, m.Post(1, Notification{Key: 1}))
	require.Equal(t, 1, a.Len())
	require.Zero(t, b.Len())

	require.NoError(t, m.Cancel(1))
	require.Zero(t, a.Len())
}

func TestMultiFailsOnlyWhenNoMemberDelivers(t *testing.T) {
	boom := errors.New("offline")
	inbox := NewInbox()

	require.NoError(t, Multi{failingFacility{err: boom}, inbox}.Post(1, Notification{Key: 1}))
	err := Multi{failingFacility{err: boom}}.Post(1, Notification{Key: 1})
	require.ErrorIs(t, err, boom)

	inbox.SetPermission(false)
	require.False(t, Multi{inbox}.PermissionGranted())
}

func TestDesktopBuildsPlatformCommands(t *testing.T) {
	var gotName string
	var gotArgs []string
	record := func(name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}
	n := Notification{Header: "Reminder", Title: `Say "hi"`, Body: "now", Ongoing: true}

	linux := &Desktop{goos: "linux", run: record}
	require.NoError(t, linux.Post(1, n))
	require.Equal(t, "notify-send", gotName)
	require.Contains(t, gotArgs, "--urgency=critical")
	require.Equal(t, "now", gotArgs[len(gotArgs)-1])

	mac := &Desktop{goos: "darwin", run: record}
	require.NoError(t, mac.Post(1, n))
	require.Equal(t, "osascript", gotName)
	require.True(t, strings.Contains(gotArgs[1], `Say \"hi\"`), gotArgs[1])
	require.Contains(t, gotArgs[1], `sound name "default"`)
}

func TestDesktopPermissionFollowsToolAvailability(t *testing.T) {
	missing := func(string) (string, error) { return "", errors.New("not found") }
	found := func(name string) (string, error) { return "/usr/bin/" + name, nil }

	require.False(t, (&Desktop{goos: "linux", lookPath: missing}).PermissionGranted())
	require.True(t, (&Desktop{goos: "linux", lookPath: found}).PermissionGranted())
	require.False(t, (&Desktop{goos: "plan9", lookPath: found}).PermissionGranted())
}

func TestDefaultChannel(t *testing.T) {
	ch := DefaultChannel()
	require.Equal(t, "reminders", ch.ID)
	require.Equal(t, "Task reminders", ch.Name)
	require.Equal(t, ImportanceHigh, ch.Importance)
	require.Equal(t, VisibilityPublic, ch.Visibility)
}
