package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/reminderd/internal/alarmkey"
	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

// TaskService is the task-editing surface. Each mutation lands in the store
// through the write pool before the matching timer is armed or cancelled.
// With a nil scheduler it only writes, leaving arming to whichever process
// runs the engine.
type TaskService struct {
	repo      storage.Repository
	pool      *storage.WritePool
	keys      *alarmkey.Allocator
	scheduler Scheduler
	presenter Presenter
	guard     Forgetter
	logger    *slog.Logger
	now       func() time.Time
}

type TaskServiceDeps struct {
	Repo      storage.Repository
	Pool      *storage.WritePool
	Scheduler Scheduler
	Presenter Presenter
	Guard     Forgetter
	Logger    *slog.Logger
}

func NewTaskService(deps TaskServiceDeps) *TaskService {
	pool := deps.Pool
	if pool == nil {
		pool = storage.NewWritePool(1)
	}
	return &TaskService{
		repo:      deps.Repo,
		pool:      pool,
		keys:      alarmkey.New(deps.Repo),
		scheduler: deps.Scheduler,
		presenter: deps.Presenter,
		guard:     deps.Guard,
		logger:    logging.OrDiscard(deps.Logger),
		now:       time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, in model.Task) (model.Task, error) {
	in.ID = 0
	in.AlarmID = 0
	if err := in.Validate(); err != nil {
		return model.Task{}, err
	}
	if _, err := s.keys.Ensure(ctx, &in); err != nil {
		return model.Task{}, err
	}
	created, err := s.pool.Submit(ctx, func(ctx context.Context) (model.Task, error) {
		return s.repo.CreateTask(ctx, in)
	}).Wait(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created", "task", created.ID, "alarm", created.AlarmID, "due", created.DueAt)
	return created, s.sync(ctx, created)
}

// Update saves in over the stored task. The stored alarm key and deletion
// state are kept; a key is allocated if in gains its first due time.
func (s *TaskService) Update(ctx context.Context, in model.Task) (model.Task, error) {
	stored, err := s.repo.GetTask(ctx, in.ID)
	if err != nil {
		return model.Task{}, err
	}
	in.AlarmID = stored.AlarmID
	in.AnchorAt = 0
	if in.DueAt == stored.DueAt {
		in.AnchorAt = stored.AnchorAt
	}
	in.IsDeleted = stored.IsDeleted
	in.DeletedAt = stored.DeletedAt
	in.CreatedAt = stored.CreatedAt
	if err := in.Validate(); err != nil {
		return model.Task{}, err
	}
	if _, err := s.keys.Ensure(ctx, &in); err != nil {
		return model.Task{}, err
	}
	updated, err := s.pool.Submit(ctx, func(ctx context.Context) (model.Task, error) {
		if err := s.repo.UpdateTask(ctx, in); err != nil {
			return model.Task{}, err
		}
		return in, nil
	}).Wait(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("update task %d: %w", in.ID, err)
	}
	return updated, s.sync(ctx, updated)
}

// Reschedule moves the reminder of task id to at. A zero at clears it.
func (s *TaskService) Reschedule(ctx context.Context, id int64, at time.Time) (model.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	task.DueAt = model.Millis(at)
	return s.Update(ctx, task)
}

func (s *TaskService) Complete(ctx context.Context, id int64, completed bool) (model.Task, error) {
	task, err := s.write(ctx, id, func(ctx context.Context) error {
		return s.repo.UpdateCompletion(ctx, id, completed)
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("complete task %d: %w", id, err)
	}
	s.logger.Info("task completion changed", "task", id, "completed", completed)
	return task, s.sync(ctx, task)
}

func (s *TaskService) Delete(ctx context.Context, id int64) (model.Task, error) {
	task, err := s.write(ctx, id, func(ctx context.Context) error {
		return s.repo.SoftDeleteTask(ctx, id, s.now())
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("delete task %d: %w", id, err)
	}
	s.logger.Info("task moved to recycle bin", "task", id)
	return task, s.sync(ctx, task)
}

func (s *TaskService) Restore(ctx context.Context, id int64) (model.Task, error) {
	task, err := s.write(ctx, id, func(ctx context.Context) error {
		return s.repo.RestoreTask(ctx, id)
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("restore task %d: %w", id, err)
	}
	s.logger.Info("task restored", "task", id)
	return task, s.sync(ctx, task)
}

// Purge permanently removes tasks that have sat in the recycle bin longer
// than olderThan.
func (s *TaskService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	n, err := s.repo.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted tasks: %w", err)
	}
	if n > 0 {
		s.logger.Info("recycle bin purged", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *TaskService) List(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error) {
	return s.repo.ListTasks(ctx, filter)
}

func (s *TaskService) write(ctx context.Context, id int64, fn func(ctx context.Context) error) (model.Task, error) {
	return s.pool.Submit(ctx, func(ctx context.Context) (model.Task, error) {
		if err := fn(ctx); err != nil {
			return model.Task{}, err
		}
		return s.repo.GetTask(ctx, id)
	}).Wait(ctx)
}

// sync brings the timer and notification for task in line with its stored
// state. A reminder saved with a past due time fires once right away.
func (s *TaskService) sync(ctx context.Context, task model.Task) error {
	if s.scheduler == nil {
		return nil
	}
	if !task.Active() || task.DueAt == 0 {
		if s.guard != nil {
			s.guard.Forget(task.ID)
		}
		if s.presenter != nil {
			if err := s.presenter.Withdraw(task.ID); err != nil {
				s.logger.Warn("withdraw failed", "task", task.ID, "err", err)
			}
		}
		return s.scheduler.Cancel(task)
	}
	return s.scheduler.Schedule(ctx, task)
}
