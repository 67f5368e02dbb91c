package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/reminderd/internal/alarm"
	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/notify"
)

var ErrEngineStopped = errors.New("reminder: engine stopped")

// Event is anything the engine reacts to.
type Event interface {
	event()
}

type FireEvent struct {
	Payload model.Payload
	Method  alarm.Method
	FiredAt time.Time
}

type SnoozeEvent struct{ Request SnoozeRequest }

type DismissEvent struct{ Payload model.Payload }

type OpenEvent struct{ Payload model.Payload }

type CompleteEvent struct{ Payload model.Payload }

// RestartEvent follows a restart, when every timer has been lost.
type RestartEvent struct{}

func (FireEvent) event()     {}
func (SnoozeEvent) event()   {}
func (DismissEvent) event()  {}
func (OpenEvent) event()     {}
func (CompleteEvent) event() {}
func (RestartEvent) event()  {}

// Opener brings a task into view when its notification is tapped.
type Opener interface {
	Open(taskID int64)
}

type EngineDeps struct {
	Store     Store
	Scheduler Scheduler
	Presenter Presenter
	Prefs     Preferences
	Delivery  *DeliveryHandler
	Snooze    *SnoozeCoordinator
	Dismiss   *DismissGuard
	Recovery  *RebootRecovery
	Tasks     *TaskService
	Opener    Opener
	Logger    *slog.Logger
	// Buffer is the capacity of the inbound event queue.
	Buffer int
}

// Engine serializes every reminder event through one queue.
type Engine struct {
	deps     EngineDeps
	logger   *slog.Logger
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewEngine(deps EngineDeps) *Engine {
	if deps.Buffer <= 0 {
		deps.Buffer = 64
	}
	return &Engine{
		deps:   deps,
		logger: logging.OrDiscard(deps.Logger),
		events: make(chan Event, deps.Buffer),
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Submit queues ev, blocking while the queue is full.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleAction turns a notification response into an event.
func (e *Engine) HandleAction(ctx context.Context, a notify.Action) error {
	var ev Event
	switch a.Kind {
	case notify.ActionSnooze:
		ev = SnoozeEvent{Request: SnoozeRequestFor(a.Payload)}
	case notify.ActionDismiss:
		ev = DismissEvent{Payload: a.Payload}
	case notify.ActionOpen:
		ev = OpenEvent{Payload: a.Payload}
	case notify.ActionComplete:
		ev = CompleteEvent{Payload: a.Payload}
	default:
		return errors.New("reminder: unknown action " + string(a.Kind))
	}
	return e.Submit(ctx, ev)
}

// Run consumes events until ctx ends. Fires from the alarm facility are fed
// into the same queue.
func (e *Engine) Run(ctx context.Context, fires <-chan alarm.Fire) error {
	defer e.stop()
	if fires != nil {
		go e.pump(ctx, fires)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		if e.deps.Dismiss != nil {
			e.deps.Dismiss.Stop()
		}
	})
}

func (e *Engine) pump(ctx context.Context, fires <-chan alarm.Fire) {
	for f := range fires {
		ev := FireEvent{Payload: f.Payload, Method: f.Method, FiredAt: f.FiredAt}
		if err := e.Submit(ctx, ev); err != nil {
			return
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case FireEvent:
		e.onFire(ctx, ev)
	case SnoozeEvent:
		if e.deps.Snooze == nil {
			return
		}
		if _, err := e.deps.Snooze.OnSnooze(ctx, ev.Request); err == nil {
			e.transition(ev.Request.TaskID, model.ReminderDelivered, model.ReminderSnoozed)
			e.transition(ev.Request.TaskID, model.ReminderSnoozed, model.ReminderScheduled)
		}
	case DismissEvent:
		if e.deps.Dismiss == nil {
			return
		}
		e.deps.Dismiss.OnUserDismiss(ctx, ev.Payload)
		e.transition(ev.Payload.TaskID, model.ReminderDelivered, model.ReminderDismissed)
	case OpenEvent:
		e.onOpen(ev)
	case CompleteEvent:
		if e.deps.Tasks == nil {
			return
		}
		if _, err := e.deps.Tasks.Complete(ctx, ev.Payload.TaskID, true); err != nil {
			e.logger.Error("complete from notification failed", "task", ev.Payload.TaskID, "err", err)
			return
		}
		e.transition(ev.Payload.TaskID, model.ReminderDelivered, model.ReminderCompleted)
	case RestartEvent:
		if e.deps.Recovery == nil {
			return
		}
		reports := e.deps.Recovery.Start(ctx)
		go func() {
			if r, ok := <-reports; ok && r.Err != nil {
				e.logger.Error("restart recovery incomplete", "err", r.Err)
			}
		}()
	default:
		e.logger.Warn("unknown reminder event", "type", fmt.Sprintf("%T", ev))
	}
}

func (e *Engine) onFire(ctx context.Context, ev FireEvent) {
	fireID := uuid.NewString()
	logger := e.logger.With("fire", fireID, "task", ev.Payload.TaskID, "alarm", ev.Payload.AlarmID)
	logger.Debug("alarm fired", "method", ev.Method, "fired_at", ev.FiredAt)
	e.transition(ev.Payload.TaskID, model.ReminderScheduled, model.ReminderFired)
	if e.deps.Delivery == nil {
		return
	}

	out, task := e.deps.Delivery.deliver(ctx, ev.Payload)
	logger.Info("reminder fire handled", "outcome", out)
	switch out {
	case OutcomeDelivered:
		e.transition(task.ID, model.ReminderFired, model.ReminderDelivered)
		e.advanceRepeat(ctx, logger, task)
	case OutcomeSuppressed:
		e.transition(ev.Payload.TaskID, model.ReminderFired, model.ReminderSuppressed)
	}
}

// advanceRepeat moves a repeating task to the occurrence after its anchor
// (the original slot, even if it was snoozed) and arms it under the same
// alarm key.
func (e *Engine) advanceRepeat(ctx context.Context, logger *slog.Logger, task model.Task) {
	if task.Repeat == model.RepeatNone || e.deps.Store == nil || e.deps.Scheduler == nil {
		return
	}
	next := task.Repeat.Next(task.Anchor(), e.now())
	if next.IsZero() {
		return
	}
	task.DueAt = model.Millis(next)
	task.AnchorAt = 0
	if err := e.deps.Store.UpdateDueAt(ctx, task.ID, task.DueAt); err != nil {
		logger.Error("repeat advance not saved", "err", err)
		return
	}
	if err := e.deps.Scheduler.Schedule(ctx, task); err != nil {
		logger.Error("repeat re-arm failed", "err", err)
		return
	}
	logger.Info("repeating reminder re-armed", "repeat", task.Repeat, "next", next)
}

func (e *Engine) onOpen(ev OpenEvent) {
	if e.deps.Opener != nil {
		e.deps.Opener.Open(ev.Payload.TaskID)
	}
	// Transient reminders go away once tapped.
	if e.deps.Presenter != nil && (e.deps.Prefs == nil || !e.deps.Prefs.PersistentReminders()) {
		if err := e.deps.Presenter.Withdraw(ev.Payload.TaskID); err != nil {
			e.logger.Warn("withdraw on open failed", "task", ev.Payload.TaskID, "err", err)
		}
	}
}

func (e *Engine) transition(taskID int64, from, to model.ReminderState) {
	if !from.CanTransition(to) {
		e.logger.Warn("unexpected reminder transition", "task", taskID, "from", from, "to", to)
		return
	}
	e.logger.Debug("reminder state", "task", taskID, "from", from, "to", to)
}
