package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/reminderd/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateTask(ctx context.Context, in model.Task) (model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	UpdateCompletion(ctx context.Context, id int64, completed bool) error
	UpdateDueAt(ctx context.Context, id int64, dueAt int64) error
	SnoozeUntil(ctx context.Context, id int64, until int64) error
	MarkNotified(ctx context.Context, id int64, dueAt int64) error
	SoftDeleteTask(ctx context.Context, id int64, at time.Time) error
	RestoreTask(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)

	// ListDueUncompleted returns live tasks holding an alarm key whose due
	// time is after now.
	ListDueUncompleted(ctx context.Context, now time.Time) ([]model.Task, error)
	// ListUndelivered returns live keyed tasks whose current due time has
	// not been delivered yet, past or future.
	ListUndelivered(ctx context.Context) ([]model.Task, error)
	// PurgeDeleted permanently removes tasks soft-deleted before the cutoff.
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	// NextAlarmKey hands out a scheduling key never returned before.
	NextAlarmKey(ctx context.Context) (int64, error)
}
