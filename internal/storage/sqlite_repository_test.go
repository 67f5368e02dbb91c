package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/reminderd/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "reminderd-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	due := parseRFC3339(t, "2026-02-09T13:00:00Z")

	task, err := repo.CreateTask(ctx, model.Task{
		AlarmID:     42,
		Title:       "Write schema",
		Description: "Design storage layout",
		Priority:    model.PriorityHigh,
		DueAt:       due.UnixMilli(),
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected store to assign an id")
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Title != task.Title || got.AlarmID != 42 || got.DueAt != due.UnixMilli() || got.Priority != model.PriorityHigh {
		t.Fatalf("unexpected task get result: %#v", got)
	}

	task.Title = "Write schema v2"
	task.Repeat = model.RepeatWeekly
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}
	got, _ = repo.GetTask(ctx, task.ID)
	if got.Title != "Write schema v2" || got.Repeat != model.RepeatWeekly {
		t.Fatalf("unexpected task after update: %#v", got)
	}

	if err := repo.UpdateCompletion(ctx, task.ID, true); err != nil {
		t.Fatalf("update completion: %v", err)
	}
	open, err := repo.ListTasks(ctx, TaskListFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected completed task hidden, got %#v", open)
	}
	all, err := repo.ListTasks(ctx, TaskListFilter{IncludeCompleted: true})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(all) != 1 || !all[0].IsCompleted {
		t.Fatalf("unexpected full list: %#v", all)
	}

	if err := repo.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	_, err = repo.GetTask(ctx, task.ID)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if err := repo.UpdateCompletion(ctx, task.ID, false); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on missing row, got: %v", err)
	}
}

func TestSoftDeleteRestoreAndPurge(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	deletedAt := parseRFC3339(t, "2026-01-01T00:00:00Z")

	old, _ := repo.CreateTask(ctx, model.Task{Title: "old"})
	recent, _ := repo.CreateTask(ctx, model.Task{Title: "recent"})

	if err := repo.SoftDeleteTask(ctx, old.ID, deletedAt); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := repo.SoftDeleteTask(ctx, recent.ID, deletedAt.Add(40*24*time.Hour)); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	bin, err := repo.ListTasks(ctx, TaskListFilter{Deleted: true})
	if err != nil {
		t.Fatalf("list bin: %v", err)
	}
	if len(bin) != 2 || bin[0].ID != recent.ID {
		t.Fatalf("unexpected recycle bin order: %#v", bin)
	}

	purged, err := repo.PurgeDeleted(ctx, deletedAt.Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged row, got %d", purged)
	}
	if _, err := repo.GetTask(ctx, old.ID); err != ErrNotFound {
		t.Fatalf("expected old task purged, got %v", err)
	}

	if err := repo.RestoreTask(ctx, recent.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := repo.GetTask(ctx, recent.ID)
	if got.IsDeleted || got.DeletedAt != 0 {
		t.Fatalf("unexpected restored task: %#v", got)
	}
}

func TestListDueUncompleted(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")
	future := now.Add(time.Hour).UnixMilli()

	want, _ := repo.CreateTask(ctx, model.Task{Title: "due", AlarmID: 1, DueAt: future})
	_, _ = repo.CreateTask(ctx, model.Task{Title: "past", AlarmID: 2, DueAt: now.Add(-time.Hour).UnixMilli()})
	_, _ = repo.CreateTask(ctx, model.Task{Title: "done", AlarmID: 3, DueAt: future, IsCompleted: true})
	_, _ = repo.CreateTask(ctx, model.Task{Title: "keyless", DueAt: future})
	_, _ = repo.CreateTask(ctx, model.Task{Title: "undue", AlarmID: 4})
	gone, _ := repo.CreateTask(ctx, model.Task{Title: "gone", AlarmID: 5, DueAt: future})
	_ = repo.SoftDeleteTask(ctx, gone.ID, now)

	due, err := repo.ListDueUncompleted(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != want.ID {
		t.Fatalf("unexpected due list: %#v", due)
	}
}

func TestListUndeliveredIncludesPastDue(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")
	past := now.Add(-time.Hour).UnixMilli()
	future := now.Add(time.Hour).UnixMilli()

	missed, _ := repo.CreateTask(ctx, model.Task{Title: "missed", AlarmID: 1, DueAt: past})
	upcoming, _ := repo.CreateTask(ctx, model.Task{Title: "upcoming", AlarmID: 2, DueAt: future})
	shown, _ := repo.CreateTask(ctx, model.Task{Title: "shown", AlarmID: 3, DueAt: past})
	_, _ = repo.CreateTask(ctx, model.Task{Title: "done", AlarmID: 4, DueAt: past, IsCompleted: true})
	_, _ = repo.CreateTask(ctx, model.Task{Title: "keyless", DueAt: past})

	if err := repo.MarkNotified(ctx, shown.ID, past); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	got, err := repo.ListUndelivered(ctx)
	if err != nil {
		t.Fatalf("list undelivered: %v", err)
	}
	if len(got) != 2 || got[0].ID != missed.ID || got[1].ID != upcoming.ID {
		t.Fatalf("unexpected undelivered list: %#v", got)
	}

	// Moving a delivered task to a new due time makes it pending again.
	if err := repo.UpdateDueAt(ctx, shown.ID, future); err != nil {
		t.Fatalf("update due: %v", err)
	}
	got, _ = repo.ListUndelivered(ctx)
	if len(got) != 3 {
		t.Fatalf("expected rescheduled task pending, got %#v", got)
	}
}

func TestMarkNotifiedIgnoresStaleDueTime(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	task, _ := repo.CreateTask(ctx, model.Task{Title: "moved", AlarmID: 1, DueAt: 2000})

	if err := repo.MarkNotified(ctx, task.ID, 1000); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	got, _ := repo.GetTask(ctx, task.ID)
	if got.NotifiedDue != 0 || got.Delivered() {
		t.Fatalf("expected stale delivery ignored, got %#v", got)
	}
	if err := repo.MarkNotified(ctx, task.ID, 2000); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	got, _ = repo.GetTask(ctx, task.ID)
	if !got.Delivered() {
		t.Fatalf("expected delivered, got %#v", got)
	}
}

func TestSnoozeUntilKeepsFirstAnchor(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	task, _ := repo.CreateTask(ctx, model.Task{Title: "daily", AlarmID: 1, DueAt: 1000, Repeat: model.RepeatDaily})

	if err := repo.SnoozeUntil(ctx, task.ID, 5000); err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if err := repo.SnoozeUntil(ctx, task.ID, 9000); err != nil {
		t.Fatalf("second snooze: %v", err)
	}
	got, _ := repo.GetTask(ctx, task.ID)
	if got.DueAt != 9000 || got.AnchorAt != 1000 {
		t.Fatalf("expected due 9000 anchored at 1000, got %#v", got)
	}

	if err := repo.UpdateDueAt(ctx, task.ID, 20000); err != nil {
		t.Fatalf("update due: %v", err)
	}
	got, _ = repo.GetTask(ctx, task.ID)
	if got.DueAt != 20000 || got.AnchorAt != 0 {
		t.Fatalf("expected anchor cleared, got %#v", got)
	}
	if err := repo.SnoozeUntil(ctx, 999, 1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNextAlarmKeyNeverReuses(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first, err := repo.NextAlarmKey(ctx)
	if err != nil {
		t.Fatalf("next key: %v", err)
	}
	second, err := repo.NextAlarmKey(ctx)
	if err != nil {
		t.Fatalf("next key: %v", err)
	}
	if first == 0 || second <= first {
		t.Fatalf("expected increasing keys, got %d then %d", first, second)
	}

	// A key written by hand must push the counter past it.
	if _, err := repo.CreateTask(ctx, model.Task{Title: "legacy", AlarmID: 500}); err != nil {
		t.Fatalf("create: %v", err)
	}
	third, err := repo.NextAlarmKey(ctx)
	if err != nil {
		t.Fatalf("next key: %v", err)
	}
	if third <= 500 {
		t.Fatalf("expected key above 500, got %d", third)
	}
}

func TestLiveAlarmKeyIsUnique(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first, err := repo.CreateTask(ctx, model.Task{Title: "a", AlarmID: 9})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateTask(ctx, model.Task{Title: "b", AlarmID: 9}); err == nil {
		t.Fatal("expected duplicate live alarm key to be rejected")
	}

	if err := repo.SoftDeleteTask(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.CreateTask(ctx, model.Task{Title: "b", AlarmID: 9}); err != nil {
		t.Fatalf("expected key of deleted task to be free, got %v", err)
	}
}

func TestCreateTaskValidates(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.CreateTask(context.Background(), model.Task{Title: "x", Priority: "urgent"})
	if !errors.Is(err, model.ErrInvalidPriority) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
