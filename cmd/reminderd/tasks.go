package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/reminderd/internal/commands"
	"github.com/sandeepkv93/reminderd/internal/model"
	"github.com/sandeepkv93/reminderd/internal/storage"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		in          time.Duration
		at          string
		repeat      string
		priority    string
		description string
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Create a task, optionally with a reminder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := whenFromFlags(in, at)
			if err != nil {
				return err
			}
			task := model.Task{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    model.Priority(priority),
				Repeat:      model.Repeat(repeat),
			}
			if due := when.Resolve(time.Now()); !due.IsZero() {
				task.DueAt = model.Millis(due)
			}

			svc, closeFn, err := a.openTasks()
			if err != nil {
				return err
			}
			defer closeFn()
			created, err := svc.Create(cmd.Context(), task)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), created)
			return nil
		},
	}
	cmd.Flags().DurationVar(&in, "in", 0, "remind after this long, e.g. 10m")
	cmd.Flags().StringVar(&at, "at", "", "remind at HH:MM or 2006-01-02T15:04")
	cmd.Flags().StringVar(&repeat, "repeat", "", "daily, weekdays, weekly or monthly")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&description, "description", "", "task description (markdown)")
	cmd.MarkFlagsMutuallyExclusive("in", "at")
	return cmd
}

func whenFromFlags(in time.Duration, at string) (commands.When, error) {
	switch {
	case in > 0:
		return commands.ParseWhen(string(commands.WhenIn), in.String())
	case at != "":
		return commands.ParseWhen(string(commands.WhenAt), at)
	default:
		return commands.When{}, nil
	}
}

func newListCmd(a *app) *cobra.Command {
	var filter storage.TaskListFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openTasks()
			if err != nil {
				return err
			}
			defer closeFn()
			tasks, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "no tasks")
				return nil
			}
			for _, t := range tasks {
				printTask(out, t)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&filter.IncludeCompleted, "all", false, "include completed tasks")
	cmd.Flags().BoolVar(&filter.Deleted, "deleted", false, "list the recycle bin")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of tasks")
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateTask(cmd, args[0], func(ctx context.Context, id int64, svc taskMutator) (model.Task, error) {
				return svc.Complete(ctx, id, !undo)
			})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the task not completed")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Move a task to the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateTask(cmd, args[0], func(ctx context.Context, id int64, svc taskMutator) (model.Task, error) {
				return svc.Delete(ctx, id)
			})
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <task-id>",
		Short: "Restore a task from the recycle bin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutateTask(cmd, args[0], func(ctx context.Context, id int64, svc taskMutator) (model.Task, error) {
				return svc.Restore(ctx, id)
			})
		},
	}
}

func newPurgeCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove old tasks from the recycle bin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openTasks()
			if err != nil {
				return err
			}
			defer closeFn()
			n, err := svc.Purge(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d task(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", a.cfg.PurgeAfter, "purge tasks deleted longer ago than this")
	return cmd
}

type taskMutator interface {
	Complete(ctx context.Context, id int64, completed bool) (model.Task, error)
	Delete(ctx context.Context, id int64) (model.Task, error)
	Restore(ctx context.Context, id int64) (model.Task, error)
}

func (a *app) mutateTask(cmd *cobra.Command, rawID string, fn func(context.Context, int64, taskMutator) (model.Task, error)) error {
	id, err := strconv.ParseInt(strings.TrimPrefix(rawID, "#"), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid task id: %s", rawID)
	}
	svc, closeFn, err := a.openTasks()
	if err != nil {
		return err
	}
	defer closeFn()
	task, err := fn(cmd.Context(), id, svc)
	if err != nil {
		return err
	}
	printTask(cmd.OutOrStdout(), task)
	return nil
}

func printTask(w io.Writer, t model.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s", t.ID, t.Title)
	if t.HasReminder() {
		fmt.Fprintf(&b, " due %s", t.Due().Local().Format("2006-01-02 15:04"))
	}
	if t.Repeat != model.RepeatNone {
		fmt.Fprintf(&b, " repeats %s", t.Repeat)
	}
	switch {
	case t.IsDeleted:
		b.WriteString(" [deleted]")
	case t.IsCompleted:
		b.WriteString(" [done]")
	}
	fmt.Fprintln(w, b.String())
}
