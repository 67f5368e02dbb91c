package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/reminderd/internal/alarm"
	"github.com/sandeepkv93/reminderd/internal/commands"
	"github.com/sandeepkv93/reminderd/internal/housekeeping"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/notify"
	"github.com/sandeepkv93/reminderd/internal/prefs"
	"github.com/sandeepkv93/reminderd/internal/reminder"
	"github.com/sandeepkv93/reminderd/internal/scheduler"
	"github.com/sandeepkv93/reminderd/internal/storage"
	"github.com/sandeepkv93/reminderd/internal/telegram"
	"github.com/sandeepkv93/reminderd/internal/tray"
)

func newRunCmd(a *app) *cobra.Command {
	var withTray bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reminder daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runDaemon(ctx, withTray)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&withTray, "tray", false, "show reminders in a terminal tray")
	flags.BoolVar(&a.cfg.DesktopNotifications, "desktop", a.cfg.DesktopNotifications, "also post desktop notifications (REMINDERD_DESKTOP_NOTIFICATIONS)")
	flags.BoolVar(&a.cfg.ExactPrivilege, "exact", a.cfg.ExactPrivilege, "allow exact alarms (REMINDERD_EXACT_PRIVILEGE)")
	flags.DurationVar(&a.cfg.GraceWindow, "grace-window", a.cfg.GraceWindow, "arm reminders this close to due as immediate (REMINDERD_GRACE_WINDOW)")
	flags.IntVar(&a.cfg.WriteWorkers, "write-workers", a.cfg.WriteWorkers, "concurrent store writes (REMINDERD_WRITE_WORKERS)")
	flags.StringVar(&a.cfg.ResyncSpec, "resync", a.cfg.ResyncSpec, "cron spec for re-arming from the store (REMINDERD_RESYNC_SPEC)")
	flags.Int64Var(&a.cfg.TelegramChatID, "telegram-chat", a.cfg.TelegramChatID, "telegram chat to post reminders to (REMINDERD_TELEGRAM_CHAT_ID)")
	return cmd
}

// statusReporter logs user-facing confirmations and mirrors them to the
// tray when one is running.
type statusReporter struct {
	logger *slog.Logger
	tray   tray.Sender
}

func (r *statusReporter) Report(msg string) {
	r.logger.Info(msg)
	if r.tray != nil {
		go r.tray.Send(tray.SetStatusMsg{Text: msg})
	}
}

func (a *app) runDaemon(ctx context.Context, withTray bool) error {
	cfg := a.cfg
	logger := a.logger
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	current, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		return err
	}
	userPrefs := prefs.NewStore(current)
	if err := prefs.Watch(ctx, cfg.PrefsPath, userPrefs, logger.With("component", "prefs")); err != nil {
		logger.Warn("preferences will not reload", "err", err)
	}

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	pool := storage.NewWritePool(cfg.WriteWorkers)
	defer pool.Close()

	alarms := alarm.NewEngine(alarm.Options{
		Buffer:         cfg.FireBuffer,
		InexactWindow:  cfg.InexactWindow,
		MaxPending:     cfg.MaxPendingAlarms,
		ExactPrivilege: cfg.ExactPrivilege,
	})
	alarms.Start()
	defer func() {
		alarms.Stop()
		if n := alarms.Dropped(); n > 0 {
			logger.Warn("fires undelivered at shutdown", "count", n)
		}
	}()

	inbox := notify.NewInbox()
	facilities := notify.Multi{inbox}
	if cfg.DesktopNotifications {
		facilities = append(facilities, notify.NewDesktop())
	}
	var bot *telegram.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err = telegram.Dial(cfg.TelegramToken, cfg.TelegramChatID, logger.With("component", "telegram"))
		if err != nil {
			return err
		}
		facilities = append(facilities, bot)
	}
	presenter := notify.NewPresenter(facilities, userPrefs)

	reporter := &statusReporter{logger: logger.With("component", "status")}
	sched := scheduler.New(alarms, userPrefs, scheduler.Options{
		GraceWindow:    cfg.GraceWindow,
		ImmediateDelay: cfg.ImmediateDelay,
		PrivilegedTier: cfg.PrivilegedTier,
		Prompter: scheduler.PrompterFunc(func() {
			reporter.Report("Exact reminders are not allowed; run with --exact for on-time alerts")
		}),
		Logger: logger.With("component", "scheduler"),
	})

	guard := reminder.NewDismissGuard(repo, presenter, userPrefs, cfg.DismissGrace, logger.With("component", "dismiss"))
	recovery := reminder.NewRebootRecovery(repo, sched, logger.With("component", "recovery"))
	tasks := reminder.NewTaskService(reminder.TaskServiceDeps{
		Repo:      repo,
		Pool:      pool,
		Scheduler: sched,
		Presenter: presenter,
		Guard:     guard,
		Logger:    logger.With("component", "tasks"),
	})
	opener := &tray.Opener{}
	engine := reminder.NewEngine(reminder.EngineDeps{
		Store:     repo,
		Scheduler: sched,
		Presenter: presenter,
		Prefs:     userPrefs,
		Delivery:  reminder.NewDeliveryHandler(repo, presenter, reminder.NewDebouncer(cfg.DebounceWindow, 0), logger.With("component", "delivery")),
		Snooze:    reminder.NewSnoozeCoordinator(repo, sched, presenter, guard, userPrefs, reporter, logger.With("component", "snooze")),
		Dismiss:   guard,
		Recovery:  recovery,
		Tasks:     tasks,
		Opener:    opener,
		Logger:    logger.With("component", "engine"),
		Buffer:    cfg.FireBuffer,
	})

	var program *tea.Program
	if withTray {
		model := tray.NewModelWithInbox(inbox, engine, paletteHandlers(ctx, tasks, engine))
		program = tea.NewProgram(model, tea.WithContext(ctx))
		opener.Program = program
		reporter.tray = program
	}

	jobs, err := housekeeping.New(tasks, recovery, housekeeping.Config{
		PurgeSpec:  cfg.PurgeSpec,
		PurgeAfter: cfg.PurgeAfter,
		ResyncSpec: cfg.ResyncSpec,
	}, logger.With("component", "housekeeping"))
	if err != nil {
		return err
	}

	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(ctx, alarms.C()) }()
	if err := engine.Submit(ctx, reminder.RestartEvent{}); err != nil {
		return err
	}
	// Reminders that came due while no daemon was running fire once now.
	jobs.ResyncOnce()
	jobs.Start()
	defer jobs.Stop()

	if bot != nil {
		go bot.Listen(ctx, func(act notify.Action) {
			if err := engine.HandleAction(ctx, act); err != nil {
				logger.Warn("telegram action dropped", "action", act.Kind, "task", act.Payload.TaskID, "err", err)
			}
		})
	}

	logger.Info("reminderd running", "db", cfg.DBPath, "prefs", cfg.PrefsPath, "tray", withTray)
	var runErr error
	if program != nil {
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			runErr = fmt.Errorf("tray: %w", err)
		}
	} else {
		<-ctx.Done()
	}
	cancel()
	<-engineDone
	logger.Info("reminderd stopped")
	return runErr
}

// paletteHandlers runs tray palette commands against the live daemon.
func paletteHandlers(ctx context.Context, tasks *reminder.TaskService, engine *reminder.Engine) commands.Handlers {
	return commands.Handlers{
		Add: func(args commands.AddArgs) (commands.Result, error) {
			task := model.Task{Title: args.Title, DueAt: model.Millis(args.When.Resolve(time.Now()))}
			created, err := tasks.Create(ctx, task)
			if err != nil {
				return commands.Result{}, err
			}
			msg := fmt.Sprintf("added #%d %s", created.ID, created.Title)
			if w := args.When.String(); w != "" {
				msg += " " + w
			}
			return commands.Result{Message: msg}, nil
		},
		Snooze: func(args commands.SnoozeArgs) (commands.Result, error) {
			if args.For > 0 {
				if _, err := tasks.Reschedule(ctx, args.TaskID, time.Now().Add(args.For)); err != nil {
					return commands.Result{}, err
				}
				return commands.Result{Message: fmt.Sprintf("snoozed #%d for %s", args.TaskID, args.For)}, nil
			}
			task, err := tasks.Get(ctx, args.TaskID)
			if err != nil {
				return commands.Result{}, err
			}
			req := reminder.SnoozeRequestFor(task.Payload())
			if err := engine.Submit(ctx, reminder.SnoozeEvent{Request: req}); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("snoozing #%d", args.TaskID)}, nil
		},
		Done: func(args commands.DoneArgs) (commands.Result, error) {
			if _, err := tasks.Complete(ctx, args.TaskID, true); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("completed #%d", args.TaskID)}, nil
		},
		Reschedule: func(args commands.RescheduleArgs) (commands.Result, error) {
			at := args.When.Resolve(time.Now())
			if _, err := tasks.Reschedule(ctx, args.TaskID, at); err != nil {
				return commands.Result{}, err
			}
			if at.IsZero() {
				return commands.Result{Message: fmt.Sprintf("cleared reminder for #%d", args.TaskID)}, nil
			}
			return commands.Result{Message: fmt.Sprintf("rescheduled #%d for %s", args.TaskID, at.Format("Jan 2 15:04"))}, nil
		},
	}
}
