package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/notify"
)

type snoozeFixture struct {
	store     *memStore
	sched     *fakeScheduler
	inbox     *notify.Inbox
	presenter *notify.Presenter
	guard     *DismissGuard
	prefs     *fakePrefs
	reporter  *recordingReporter
	coord     *SnoozeCoordinator
	now       time.Time
}

func newSnoozeFixture(tasks ...model.Task) *snoozeFixture {
	f := &snoozeFixture{
		store:    newMemStore(tasks...),
		sched:    newFakeScheduler(),
		inbox:    notify.NewInbox(),
		prefs:    &fakePrefs{persistent: true},
		reporter: &recordingReporter{},
		now:      time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	f.presenter = notify.NewPresenter(f.inbox, f.prefs)
	f.guard = NewDismissGuard(f.store, f.presenter, f.prefs, 20*time.Millisecond, nil)
	f.coord = NewSnoozeCoordinator(f.store, f.sched, f.presenter, f.guard, f.prefs, f.reporter, nil)
	f.coord.now = func() time.Time { return f.now }
	return f
}

func TestSnoozeRearmsUnderOriginalKey(t *testing.T) {
	fireAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	f := newSnoozeFixture(model.Task{ID: 3, AlarmID: 42, Title: "Call mom", DueAt: fireAt.UnixMilli()})
	ctx := context.Background()
	require.NoError(t, f.presenter.Present(ctx, model.Payload{TaskID: 3, AlarmID: 42, Title: "Call mom"}))

	d, err := f.coord.OnSnooze(ctx, SnoozeRequest{TaskID: 3, AlarmID: 42, Title: "Call mom", Text: "Call mom"})
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, d)

	scheduled := f.sched.scheduledTasks()
	require.Len(t, scheduled, 1)
	require.Equal(t, int64(42), scheduled[0].AlarmID)
	require.Equal(t, fireAt.Add(5*time.Minute).UnixMilli(), scheduled[0].DueAt)
	require.Equal(t, fireAt.Add(5*time.Minute).UnixMilli(), f.store.get(3).DueAt)

	require.Zero(t, f.inbox.Len())
	require.Equal(t, "Snoozed for 5 minutes", f.reporter.last())
}

func TestSnoozeUsesPreferenceDuration(t *testing.T) {
	f := newSnoozeFixture(model.Task{ID: 1, AlarmID: 7, Title: "t", DueAt: 1})
	f.prefs.snooze = 15 * time.Minute

	d, err := f.coord.OnSnooze(context.Background(), SnoozeRequest{TaskID: 1, AlarmID: 7})
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, d)
	require.Equal(t, "Snoozed for 15 minutes", f.reporter.last())
}

func TestSnoozeFallsBackToStoredKey(t *testing.T) {
	f := newSnoozeFixture(model.Task{ID: 1, AlarmID: 7, Title: "t", DueAt: 1})

	_, err := f.coord.OnSnooze(context.Background(), SnoozeRequest{TaskID: 1})
	require.NoError(t, err)
	require.Equal(t, int64(7), f.sched.scheduledTasks()[0].AlarmID)
}

func TestSnoozeWithoutAnyKeyFails(t *testing.T) {
	f := newSnoozeFixture(model.Task{ID: 1, Title: "t"})

	_, err := f.coord.OnSnooze(context.Background(), SnoozeRequest{TaskID: 1})
	require.ErrorIs(t, err, ErrNoAlarmKey)
	require.Empty(t, f.sched.scheduledTasks())
	require.Contains(t, f.reporter.last(), "Failed to snooze")
}

func TestSnoozeCompletedTaskFails(t *testing.T) {
	f := newSnoozeFixture(model.Task{ID: 1, AlarmID: 2, Title: "t", DueAt: 1, IsCompleted: true})

	_, err := f.coord.OnSnooze(context.Background(), SnoozeRequest{TaskID: 1, AlarmID: 2})
	require.ErrorIs(t, err, ErrTaskInactive)
	require.Empty(t, f.sched.scheduledTasks())
}

func TestSnoozeCancelsPendingRepost(t *testing.T) {
	f := newSnoozeFixture(model.Task{ID: 1, AlarmID: 2, Title: "t", DueAt: 1})
	ctx := context.Background()

	f.guard.OnUserDismiss(ctx, model.Payload{TaskID: 1, AlarmID: 2, Title: "t"})
	require.Equal(t, 1, f.guard.Pending())

	_, err := f.coord.OnSnooze(ctx, SnoozeRequest{TaskID: 1, AlarmID: 2})
	require.NoError(t, err)
	require.Zero(t, f.guard.Pending())

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, f.inbox.Len())
}

func TestSnoozeMessage(t *testing.T) {
	require.Equal(t, "Snoozed for 1 minute", snoozeMessage(time.Minute))
	require.Equal(t, "Snoozed for 10 minutes", snoozeMessage(10*time.Minute))
	require.Equal(t, "Snoozed for 30s", snoozeMessage(30*time.Second))
}
