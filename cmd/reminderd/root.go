package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/reminderd/internal/config"
	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/reminder"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

type app struct {
	cfg    config.RuntimeConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.RuntimeConfigFromEnv(config.DefaultRuntimeConfig())}

	root := &cobra.Command{
		Use:           "reminderd",
		Short:         "Task reminder scheduling and delivery daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.logger = logging.New(cmd.ErrOrStderr(), a.cfg.LogLevel)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "task database path (REMINDERD_DB)")
	flags.StringVar(&a.cfg.PrefsPath, "prefs", a.cfg.PrefsPath, "preferences file (REMINDERD_PREFS)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error (REMINDERD_LOG_LEVEL)")

	root.AddCommand(
		newRunCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newCompleteCmd(a),
		newDeleteCmd(a),
		newRestoreCmd(a),
		newPurgeCmd(a),
		newPrefsCmd(a),
	)
	return root
}

// openTasks opens the store for one-shot commands. Timers are armed by the
// running daemon on its next resync.
func (a *app) openTasks() (*reminder.TaskService, func(), error) {
	repo, err := storage.OpenSQLite(a.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	svc := reminder.NewTaskService(reminder.TaskServiceDeps{Repo: repo, Logger: a.logger})
	return svc, func() { _ = repo.Close() }, nil
}
