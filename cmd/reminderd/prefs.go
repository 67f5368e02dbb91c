package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/reminderd/internal/prefs"
)

func newPrefsCmd(a *app) *cobra.Command {
	var (
		enabled    bool
		persistent bool
		snooze     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change reminder preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := prefs.Load(a.cfg.PrefsPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			changed := false
			if flags.Changed("enabled") {
				p.RemindersEnabled = enabled
				changed = true
			}
			if flags.Changed("persistent") {
				p.PersistentReminders = persistent
				changed = true
			}
			if flags.Changed("snooze") {
				p.SnoozeDuration = prefs.Duration(snooze)
				changed = true
			}
			if changed {
				if err := prefs.Save(a.cfg.PrefsPath, p); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reminders_enabled: %t\n", p.RemindersEnabled)
			fmt.Fprintf(out, "persistent_reminders: %t\n", p.PersistentReminders)
			fmt.Fprintf(out, "snooze_duration: %s\n", time.Duration(p.SnoozeDuration))
			return nil
		},
	}
	cmd.Flags().BoolVar(&enabled, "enabled", true, "schedule reminders at all")
	cmd.Flags().BoolVar(&persistent, "persistent", false, "keep reminders on screen until acted on")
	cmd.Flags().DurationVar(&snooze, "snooze", prefs.DefaultSnooze, "snooze length")
	return cmd
}
