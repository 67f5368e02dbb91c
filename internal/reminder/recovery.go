package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/reminderd/internal/logging"
)

type RecoveryReport struct {
	Scanned   int
	Scheduled int
	Skipped   int
	Failed    int
	Err       error
}

// RebootRecovery re-arms every pending reminder after the timers were lost.
type RebootRecovery struct {
	store     Store
	scheduler Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

func NewRebootRecovery(store Store, scheduler Scheduler, logger *slog.Logger) *RebootRecovery {
	return &RebootRecovery{store: store, scheduler: scheduler, logger: logging.OrDiscard(logger), now: time.Now}
}

// OnSystemRestart schedules each live, future, keyed reminder exactly once.
// A task that fails to arm is logged and counted; the rest still run.
func (r *RebootRecovery) OnSystemRestart(ctx context.Context) RecoveryReport {
	now := r.now()
	nowMillis := now.UnixMilli()

	tasks, err := r.store.ListDueUncompleted(ctx, now)
	if err != nil {
		r.logger.Error("recovery scan failed", "err", err)
		return RecoveryReport{Err: fmt.Errorf("reminder: recovery scan: %w", err)}
	}

	report := RecoveryReport{Scanned: len(tasks)}
	for _, task := range tasks {
		if task.IsCompleted || task.IsDeleted || task.DueAt <= nowMillis || task.AlarmID == 0 {
			report.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		if err := r.scheduler.Schedule(ctx, task); err != nil {
			report.Failed++
			r.logger.Error("recovery could not re-arm", "task", task.ID, "alarm", task.AlarmID, "err", err)
			continue
		}
		report.Scheduled++
	}
	r.logger.Info("reminders recovered",
		"scanned", report.Scanned, "scheduled", report.Scheduled, "skipped", report.Skipped, "failed", report.Failed)
	return report
}

// Resync arms every live, keyed reminder whose current due time has not
// been delivered, including ones already past due, so tasks written by
// another process are never missed. Past-due reminders fire once; arming an
// already armed key just replaces its timer.
func (r *RebootRecovery) Resync(ctx context.Context) RecoveryReport {
	tasks, err := r.store.ListUndelivered(ctx)
	if err != nil {
		r.logger.Error("resync scan failed", "err", err)
		return RecoveryReport{Err: fmt.Errorf("reminder: resync scan: %w", err)}
	}

	report := RecoveryReport{Scanned: len(tasks)}
	for _, task := range tasks {
		if !task.Active() || task.AlarmID == 0 || task.DueAt <= 0 || task.Delivered() {
			report.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		if err := r.scheduler.Schedule(ctx, task); err != nil {
			report.Failed++
			r.logger.Error("resync could not arm", "task", task.ID, "alarm", task.AlarmID, "err", err)
			continue
		}
		report.Scheduled++
	}
	r.logger.Debug("reminders resynced",
		"scanned", report.Scanned, "scheduled", report.Scheduled, "skipped", report.Skipped, "failed", report.Failed)
	return report
}

// Start runs OnSystemRestart in the background and delivers its report.
func (r *RebootRecovery) Start(ctx context.Context) <-chan RecoveryReport {
	out := make(chan RecoveryReport, 1)
	go func() {
		defer close(out)
		out <- r.OnSystemRestart(ctx)
	}()
	return out
}
