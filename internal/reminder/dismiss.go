package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
)

const DefaultDismissGrace = 3 * time.Second

type pendingRepost struct {
	timer *time.Timer
	gen   uint64
}

// DismissGuard brings persistent reminders back after the user swipes them
// away, until the task is completed, deleted or snoozed.
type DismissGuard struct {
	store     Store
	presenter Presenter
	prefs     Preferences
	grace     time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[int64]pendingRepost
	stopped bool
}

func NewDismissGuard(store Store, presenter Presenter, prefs Preferences, grace time.Duration, logger *slog.Logger) *DismissGuard {
	if grace <= 0 {
		grace = DefaultDismissGrace
	}
	return &DismissGuard{
		store:     store,
		presenter: presenter,
		prefs:     prefs,
		grace:     grace,
		logger:    logging.OrDiscard(logger),
		pending:   make(map[int64]pendingRepost),
	}
}

// OnUserDismiss withdraws the notification and, for persistent reminders,
// schedules a repost after the grace delay. A second dismiss for the same
// task replaces the first repost.
func (g *DismissGuard) OnUserDismiss(ctx context.Context, p model.Payload) {
	if err := g.presenter.Withdraw(p.TaskID); err != nil {
		g.logger.Warn("withdraw on dismiss failed", "task", p.TaskID, "err", err)
	}
	if g.prefs == nil || !g.prefs.PersistentReminders() {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	if prev, ok := g.pending[p.TaskID]; ok {
		prev.timer.Stop()
	}
	g.gen++
	gen := g.gen
	repostCtx := context.WithoutCancel(ctx)
	timer := time.AfterFunc(g.grace, func() { g.repost(repostCtx, p, gen) })
	g.pending[p.TaskID] = pendingRepost{timer: timer, gen: gen}
}

// Forget cancels any pending repost for taskID.
func (g *DismissGuard) Forget(taskID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.pending[taskID]; ok {
		prev.timer.Stop()
		delete(g.pending, taskID)
	}
}

func (g *DismissGuard) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *DismissGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for id, prev := range g.pending {
		prev.timer.Stop()
		delete(g.pending, id)
	}
}

func (g *DismissGuard) repost(ctx context.Context, p model.Payload, gen uint64) {
	g.mu.Lock()
	current, ok := g.pending[p.TaskID]
	if !ok || current.gen != gen || g.stopped {
		g.mu.Unlock()
		return
	}
	delete(g.pending, p.TaskID)
	g.mu.Unlock()

	if !g.prefs.PersistentReminders() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	task, err := g.store.GetTask(ctx, p.TaskID)
	if err != nil {
		g.logger.Info("dismissed reminder not reposted", "task", p.TaskID, "err", err)
		return
	}
	if !task.Active() || task.DueAt == 0 {
		g.logger.Debug("dismissed reminder not reposted", "task", p.TaskID, "reason", "inactive")
		return
	}
	shown := task.Payload()
	if shown.AlarmID == 0 {
		shown.AlarmID = p.AlarmID
	}
	if err := g.presenter.Present(ctx, shown); err != nil {
		g.logger.Error("repost failed", "task", p.TaskID, "err", err)
		return
	}
	g.logger.Debug("persistent reminder reposted", "task", p.TaskID)
}
