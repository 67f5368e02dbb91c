package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

const (
	DefaultDebounceWindow = time.Second
	defaultDebounceSize   = 1024
)

type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeFailed     Outcome = "failed"
)

type fireKey struct {
	alarm int64
	due   int64
}

// Debouncer remembers recent fires per alarm key and due time so a burst of
// fires for one arming yields one notification. Re-arming the key for a new
// due time starts afresh.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	last   map[fireKey]time.Time
}

func NewDebouncer(window time.Duration, max int) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if max <= 0 {
		max = defaultDebounceSize
	}
	return &Debouncer{window: window, max: max, last: make(map[fireKey]time.Time)}
}

// Allow records a fire for the alarm armed for dueAt and reports whether it
// is the first within the window.
func (d *Debouncer) Allow(alarmID, dueAt int64, now time.Time) bool {
	key := fireKey{alarm: alarmID, due: dueAt}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[key]; ok && now.Sub(prev) < d.window {
		return false
	}
	if len(d.last) >= d.max {
		d.prune(now)
	}
	d.last[key] = now
	return true
}

func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.last)
}

func (d *Debouncer) prune(now time.Time) {
	var (
		oldestKey fireKey
		oldestAt  time.Time
	)
	for key, at := range d.last {
		if now.Sub(at) >= d.window {
			delete(d.last, key)
			continue
		}
		if oldestAt.IsZero() || at.Before(oldestAt) {
			oldestKey, oldestAt = key, at
		}
	}
	if len(d.last) >= d.max {
		delete(d.last, oldestKey)
	}
}

type DeliveryHandler struct {
	store     Store
	presenter Presenter
	debounce  *Debouncer
	logger    *slog.Logger
	now       func() time.Time
}

func NewDeliveryHandler(store Store, presenter Presenter, debounce *Debouncer, logger *slog.Logger) *DeliveryHandler {
	if debounce == nil {
		debounce = NewDebouncer(DefaultDebounceWindow, 0)
	}
	return &DeliveryHandler{
		store:     store,
		presenter: presenter,
		debounce:  debounce,
		logger:    logging.OrDiscard(logger),
		now:       time.Now,
	}
}

// OnFire decides what a fired timer turns into. The payload is only a
// fallback for display text; whether to notify is decided by the store.
func (h *DeliveryHandler) OnFire(ctx context.Context, p model.Payload) Outcome {
	out, _ := h.deliver(ctx, p)
	return out
}

func (h *DeliveryHandler) deliver(ctx context.Context, p model.Payload) (out Outcome, task model.Task) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("reminder delivery panicked", "task", p.TaskID, "alarm", p.AlarmID, "panic", fmt.Sprint(r))
			out = OutcomeFailed
		}
	}()

	if !h.debounce.Allow(p.AlarmID, p.DueAt, h.now()) {
		h.logger.Debug("duplicate fire dropped", "task", p.TaskID, "alarm", p.AlarmID)
		return OutcomeDuplicate, model.Task{}
	}

	task, err := h.store.GetTask(ctx, p.TaskID)
	if errors.Is(err, storage.ErrNotFound) {
		h.logger.Info("reminder suppressed", "task", p.TaskID, "reason", "task gone")
		return OutcomeSuppressed, model.Task{}
	}
	if err != nil {
		h.logger.Error("reminder re-check failed", "task", p.TaskID, "err", err)
		return OutcomeFailed, model.Task{}
	}
	switch {
	case task.IsCompleted:
		h.logger.Info("reminder suppressed", "task", task.ID, "reason", "completed")
		return OutcomeSuppressed, task
	case task.IsDeleted:
		h.logger.Info("reminder suppressed", "task", task.ID, "reason", "deleted")
		return OutcomeSuppressed, task
	case task.DueAt == 0:
		h.logger.Info("reminder suppressed", "task", task.ID, "reason", "reminder cleared")
		return OutcomeSuppressed, task
	}

	shown := task.Payload()
	if shown.AlarmID == 0 {
		shown.AlarmID = p.AlarmID
	}
	if shown.Title == "" && shown.Description == "" {
		shown.Title, shown.Description = p.Title, p.Description
	}
	if err := h.presenter.Present(ctx, shown); err != nil {
		h.logger.Error("reminder presentation failed", "task", task.ID, "err", err)
		return OutcomeFailed, task
	}
	if err := h.store.MarkNotified(ctx, task.ID, task.DueAt); err != nil {
		h.logger.Warn("delivery not recorded", "task", task.ID, "err", err)
	}
	task.NotifiedDue = task.DueAt
	return OutcomeDelivered, task
}
