// Package scheduler arms and cancels reminder timers on an alarm facility,
// degrading from exact to inexact timing when exact privilege is withheld.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/model"
)

var ErrSchedulingRejected = errors.New("scheduler: every arming strategy was rejected")

const (
	DefaultGraceWindow    = 5 * time.Second
	DefaultImmediateDelay = 100 * time.Millisecond
)

// Facility is the alarm service timers are armed on. Every arming method
// keys the timer by the bare alarm id, so one Cancel covers all of them.
type Facility interface {
	ArmExact(key int64, at time.Time, p model.Payload) error
	ArmInexact(key int64, at time.Time, p model.Payload) error
	Cancel(key int64) error
	HasExactPrivilege() bool
}

type alarmClockFacility interface {
	ArmAlarmClock(key int64, at time.Time, p model.Payload) error
}

type plainFacility interface {
	ArmPlain(key int64, at time.Time, p model.Payload) error
}

type Preferences interface {
	RemindersEnabled() bool
}

// PrivilegePrompter asks the user to grant exact timing.
type PrivilegePrompter interface {
	PromptExactPrivilege()
}

type PrompterFunc func()

func (f PrompterFunc) PromptExactPrivilege() { f() }

type Strategy interface {
	Name() string
	Arm(key int64, at time.Time, p model.Payload) error
}

type strategy struct {
	name string
	arm  func(key int64, at time.Time, p model.Payload) error
}

func (s strategy) Name() string { return s.name }

func (s strategy) Arm(key int64, at time.Time, p model.Payload) error {
	return s.arm(key, at, p)
}

type Options struct {
	// GraceWindow is how close to due a reminder may be before it is armed
	// as an immediate timer instead.
	GraceWindow    time.Duration
	ImmediateDelay time.Duration
	// PrivilegedTier marks platforms where exact timing must be granted by
	// the user.
	PrivilegedTier bool
	Prompter       PrivilegePrompter
	Logger         *slog.Logger
	Now            func() time.Time
}

type AlarmScheduler struct {
	facility Facility
	prefs    Preferences
	opts     Options
	logger   *slog.Logger
	prompt   sync.Once
}

func New(facility Facility, prefs Preferences, opts Options) *AlarmScheduler {
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = DefaultGraceWindow
	}
	if opts.ImmediateDelay <= 0 {
		opts.ImmediateDelay = DefaultImmediateDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AlarmScheduler{
		facility: facility,
		prefs:    prefs,
		opts:     opts,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Schedule replaces whatever timer task.AlarmID holds with one for
// task.DueAt. Tasks without a due time or key are ignored.
func (s *AlarmScheduler) Schedule(ctx context.Context, task model.Task) error {
	if s.prefs != nil && !s.prefs.RemindersEnabled() {
		return nil
	}
	if task.DueAt <= 0 || task.AlarmID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Cancel(task); err != nil {
		return err
	}

	now := s.opts.Now()
	due := task.Due()
	payload := task.Payload()

	var (
		at     time.Time
		chain  []Strategy
		remain = due.Sub(now)
	)
	if remain <= s.opts.GraceWindow {
		at = now.Add(s.opts.ImmediateDelay)
		chain = s.immediateChain()
	} else {
		at = due
		chain = s.rankedChain()
	}

	var lastErr error
	for _, st := range chain {
		err := st.Arm(task.AlarmID, at, payload)
		if err == nil {
			s.logger.Debug("reminder armed",
				"task", task.ID, "alarm", task.AlarmID, "strategy", st.Name(), "at", at, "delay", at.Sub(now))
			return nil
		}
		s.logger.Debug("arming strategy rejected", "alarm", task.AlarmID, "strategy", st.Name(), "err", err)
		lastErr = err
	}

	err := fmt.Errorf("%w: alarm %d: %w", ErrSchedulingRejected, task.AlarmID, lastErr)
	s.logger.Error("reminder not armed", "task", task.ID, "alarm", task.AlarmID, "err", lastErr)
	return err
}

// Cancel removes the timer for task. It is safe to call for tasks that
// never had one.
func (s *AlarmScheduler) Cancel(task model.Task) error {
	if task.AlarmID == 0 {
		return nil
	}
	if err := s.facility.Cancel(task.AlarmID); err != nil {
		return fmt.Errorf("scheduler: cancel alarm %d: %w", task.AlarmID, err)
	}
	return nil
}

func (s *AlarmScheduler) rankedChain() []Strategy {
	chain := make([]Strategy, 0, 3)
	if s.facility.HasExactPrivilege() {
		chain = append(chain, strategy{name: "exact", arm: s.facility.ArmExact})
		if ac, ok := s.facility.(alarmClockFacility); ok {
			chain = append(chain, strategy{name: "alarm-clock", arm: ac.ArmAlarmClock})
		}
	} else {
		s.maybePrompt()
		chain = append(chain, strategy{name: "inexact", arm: s.facility.ArmInexact})
	}
	if p, ok := s.facility.(plainFacility); ok {
		chain = append(chain, strategy{name: "plain", arm: p.ArmPlain})
	}
	return chain
}

func (s *AlarmScheduler) immediateChain() []Strategy {
	chain := make([]Strategy, 0, 3)
	if p, ok := s.facility.(plainFacility); ok {
		chain = append(chain, strategy{name: "plain", arm: p.ArmPlain})
	}
	if s.facility.HasExactPrivilege() {
		chain = append(chain, strategy{name: "exact", arm: s.facility.ArmExact})
	}
	return append(chain, strategy{name: "inexact", arm: s.facility.ArmInexact})
}

func (s *AlarmScheduler) maybePrompt() {
	if !s.opts.PrivilegedTier || s.opts.Prompter == nil {
		return
	}
	s.prompt.Do(func() {
		s.logger.Info("exact timing privilege missing, prompting user")
		s.opts.Prompter.PromptExactPrivilege()
	})
}
