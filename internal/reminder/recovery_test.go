package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

func TestRecoverySchedulesEachQualifyingTaskOnce(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour).UnixMilli()
	store := newMemStore(
		model.Task{ID: 1, AlarmID: 1, Title: "a", DueAt: future},
		model.Task{ID: 2, AlarmID: 2, Title: "b", DueAt: future},
		model.Task{ID: 3, AlarmID: 3, Title: "c", DueAt: future},
		model.Task{ID: 4, AlarmID: 0, Title: "no key", DueAt: future},
		model.Task{ID: 5, AlarmID: 5, Title: "done", DueAt: future, IsCompleted: true},
		model.Task{ID: 6, AlarmID: 6, Title: "past", DueAt: now.Add(-time.Minute).UnixMilli()},
	)
	sched := newFakeScheduler()
	r := NewRebootRecovery(store, sched, nil)
	r.now = func() time.Time { return now }

	report := r.OnSystemRestart(context.Background())
	require.NoError(t, report.Err)
	require.Equal(t, 6, report.Scanned)
	require.Equal(t, 3, report.Scheduled)
	require.Equal(t, 3, report.Skipped)

	seen := map[int64]int{}
	for _, task := range sched.scheduledTasks() {
		seen[task.ID]++
	}
	require.Equal(t, map[int64]int{1: 1, 2: 1, 3: 1}, seen)
}

func TestRecoveryContinuesPastFailures(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour).UnixMilli()
	store := newMemStore(
		model.Task{ID: 1, AlarmID: 1, Title: "a", DueAt: future},
		model.Task{ID: 2, AlarmID: 2, Title: "b", DueAt: future},
	)
	sched := newFakeScheduler()
	sched.failFor[1] = errors.New("facility rejected")
	r := NewRebootRecovery(store, sched, nil)

	report := <-r.Start(context.Background())
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Scheduled)
}

func TestRecoveryReportsScanError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("no such table")
	r := NewRebootRecovery(store, newFakeScheduler(), nil)

	report := r.OnSystemRestart(context.Background())
	require.Error(t, report.Err)
	require.Zero(t, report.Scheduled)
}

func TestResyncArmsUndeliveredPastAndFutureReminders(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute).UnixMilli()
	future := now.Add(time.Hour).UnixMilli()
	store := newMemStore(
		model.Task{ID: 1, AlarmID: 1, Title: "missed", DueAt: past},
		model.Task{ID: 2, AlarmID: 2, Title: "upcoming", DueAt: future},
		model.Task{ID: 3, AlarmID: 3, Title: "shown", DueAt: past, NotifiedDue: past},
		model.Task{ID: 4, AlarmID: 4, Title: "done", DueAt: past, IsCompleted: true},
		model.Task{ID: 5, AlarmID: 0, Title: "no key", DueAt: past},
	)
	sched := newFakeScheduler()
	r := NewRebootRecovery(store, sched, nil)
	r.now = func() time.Time { return now }

	report := r.Resync(context.Background())
	require.NoError(t, report.Err)
	require.Equal(t, 2, report.Scheduled)
	require.Equal(t, 2, report.Skipped)

	seen := map[int64]bool{}
	for _, task := range sched.scheduledTasks() {
		seen[task.ID] = true
	}
	require.Equal(t, map[int64]bool{1: true, 2: true}, seen)
}

func TestResyncCatchesStoreOnlyTaskAfterItsDueTime(t *testing.T) {
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "resync.db"))
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	// A one-shot command writes the task with no scheduler attached.
	cli := NewTaskService(TaskServiceDeps{Repo: repo})
	created, err := cli.Create(ctx, model.Task{Title: "Take pills", DueAt: time.Now().Add(30 * time.Second).UnixMilli()})
	require.NoError(t, err)
	require.NotZero(t, created.AlarmID)

	// The daemon's next pass happens after the due time.
	sched := newFakeScheduler()
	r := NewRebootRecovery(repo, sched, nil)
	r.now = func() time.Time { return time.Now().Add(45 * time.Second) }

	require.Zero(t, r.OnSystemRestart(ctx).Scheduled)
	report := r.Resync(ctx)
	require.NoError(t, report.Err)
	require.Equal(t, 1, report.Scheduled)
	require.Equal(t, created.AlarmID, sched.scheduledTasks()[0].AlarmID)

	// Once delivered it is not armed again.
	require.NoError(t, repo.MarkNotified(ctx, created.ID, created.DueAt))
	require.Zero(t, r.Resync(ctx).Scheduled)
}

func TestResyncReportsScanError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("disk I/O error")
	report := NewRebootRecovery(store, newFakeScheduler(), nil).Resync(context.Background())
	require.Error(t, report.Err)
}
