// Package reminder reconciles fired timers with the task store: it decides
// whether a reminder is still wanted, presents it, and handles the user's
// snooze, dismiss, open and complete responses.
package reminder

import (
	"context"
	"time"

	"github.com/sandeepkv93/reminderd/internal/model"
)

// Store is the slice of the task store the engine reads and writes.
type Store interface {
	GetTask(ctx context.Context, id int64) (model.Task, error)
	ListDueUncompleted(ctx context.Context, now time.Time) ([]model.Task, error)
	ListUndelivered(ctx context.Context) ([]model.Task, error)
	UpdateCompletion(ctx context.Context, id int64, completed bool) error
	UpdateDueAt(ctx context.Context, id int64, dueAt int64) error
	SnoozeUntil(ctx context.Context, id int64, until int64) error
	MarkNotified(ctx context.Context, id int64, dueAt int64) error
}

type Scheduler interface {
	Schedule(ctx context.Context, task model.Task) error
	Cancel(task model.Task) error
}

type Presenter interface {
	Present(ctx context.Context, p model.Payload) error
	Withdraw(taskID int64) error
}

type Preferences interface {
	PersistentReminders() bool
	SnoozeDuration() time.Duration
}

// Forgetter drops any pending repost for a task.
type Forgetter interface {
	Forget(taskID int64)
}
