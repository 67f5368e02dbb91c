package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

const DefaultSnooze = 5 * time.Minute

var (
	ErrNoAlarmKey   = errors.New("reminder: no alarm key to snooze under")
	ErrTaskInactive = errors.New("reminder: task is completed or deleted")
)

type SnoozeRequest struct {
	TaskID  int64
	AlarmID int64
	Title   string
	Text    string
}

func SnoozeRequestFor(p model.Payload) SnoozeRequest {
	return SnoozeRequest{TaskID: p.TaskID, AlarmID: p.AlarmID, Title: p.Title, Text: p.Text()}
}

// Reporter shows short confirmations to the user.
type Reporter interface {
	Report(msg string)
}

type ReporterFunc func(msg string)

func (f ReporterFunc) Report(msg string) { f(msg) }

type SnoozeCoordinator struct {
	store     Store
	scheduler Scheduler
	presenter Presenter
	guard     Forgetter
	prefs     Preferences
	reporter  Reporter
	logger    *slog.Logger
	now       func() time.Time
}

func NewSnoozeCoordinator(store Store, scheduler Scheduler, presenter Presenter, guard Forgetter, prefs Preferences, reporter Reporter, logger *slog.Logger) *SnoozeCoordinator {
	return &SnoozeCoordinator{
		store:     store,
		scheduler: scheduler,
		presenter: presenter,
		guard:     guard,
		prefs:     prefs,
		reporter:  reporter,
		logger:    logging.OrDiscard(logger),
		now:       time.Now,
	}
}

// OnSnooze hides the reminder and re-arms it under its original alarm key
// one snooze duration from now. The new due time is saved so the reminder
// survives a restart.
func (c *SnoozeCoordinator) OnSnooze(ctx context.Context, req SnoozeRequest) (time.Duration, error) {
	d, err := c.snooze(ctx, req)
	if err != nil {
		c.report("Failed to snooze: " + err.Error())
		c.logger.Error("snooze failed", "task", req.TaskID, "alarm", req.AlarmID, "err", err)
		return 0, err
	}
	c.report(snoozeMessage(d))
	c.logger.Info("reminder snoozed", "task", req.TaskID, "alarm", req.AlarmID, "for", d)
	return d, nil
}

func (c *SnoozeCoordinator) snooze(ctx context.Context, req SnoozeRequest) (time.Duration, error) {
	if err := c.presenter.Withdraw(req.TaskID); err != nil {
		c.logger.Warn("withdraw on snooze failed", "task", req.TaskID, "err", err)
	}
	if c.guard != nil {
		c.guard.Forget(req.TaskID)
	}

	d := DefaultSnooze
	if c.prefs != nil {
		if v := c.prefs.SnoozeDuration(); v > 0 {
			d = v
		}
	}

	task, err := c.store.GetTask(ctx, req.TaskID)
	stored := err == nil
	switch {
	case stored:
		if !task.Active() {
			return 0, ErrTaskInactive
		}
	case errors.Is(err, storage.ErrNotFound):
		task = model.Task{ID: req.TaskID, Title: req.Title}
		if req.Text != req.Title {
			task.Description = strings.TrimPrefix(req.Text, req.Title+": ")
		}
	default:
		return 0, fmt.Errorf("load task %d: %w", req.TaskID, err)
	}
	if req.AlarmID != 0 {
		task.AlarmID = req.AlarmID
	}
	if task.AlarmID == 0 {
		return 0, ErrNoAlarmKey
	}

	task.DueAt = model.Millis(c.now().Add(d))
	if stored {
		if err := c.store.SnoozeUntil(ctx, task.ID, task.DueAt); err != nil {
			c.logger.Warn("snoozed due time not saved", "task", task.ID, "err", err)
		}
	}
	if err := c.scheduler.Schedule(ctx, task); err != nil {
		return 0, err
	}
	return d, nil
}

func (c *SnoozeCoordinator) report(msg string) {
	if c.reporter != nil {
		c.reporter.Report(msg)
	}
}

func snoozeMessage(d time.Duration) string {
	minutes := int(d / time.Minute)
	switch {
	case minutes == 1:
		return "Snoozed for 1 minute"
	case minutes > 1:
		return fmt.Sprintf("Snoozed for %d minutes", minutes)
	default:
		return fmt.Sprintf("Snoozed for %s", d)
	}
}
