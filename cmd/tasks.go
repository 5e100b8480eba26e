package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/tasks"
	"github.com/teemow/taskpulse/internal/tools/batch"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Manage tasks",
	}

	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksAddCmd())
	cmd.AddCommand(newTasksUpdateCmd())
	cmd.AddCommand(newTasksBatchCmd("complete", "Mark tasks as completed", "completed", func(ctx context.Context, c *tasks.Client, id tasks.ID) error {
		_, err := c.Complete(ctx, id)
		return err
	}))
	cmd.AddCommand(newTasksBatchCmd("delete", "Delete tasks", "deleted", func(ctx context.Context, c *tasks.Client, id tasks.ID) error {
		return c.Delete(ctx, id)
	}))
	cmd.AddCommand(newTasksCompleteAllCmd())
	cmd.AddCommand(newTasksClearCompletedCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var (
		status  string
		search  string
		sortBy  string
		asJSON  bool
		noStats bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := tasks.ParseStatusFilter(status)
			if err != nil {
				return err
			}
			key, err := tasks.ParseSortKey(sortBy)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				list, err := a.tasks.List(ctx)
				if err != nil {
					return err
				}

				shown := tasks.Query{Status: filter, Search: search, SortBy: key}.Apply(list)
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, shown)
				}
				if err := writeTaskTable(out, shown); err != nil {
					return err
				}
				if !noStats {
					stats := tasks.ComputeStats(list)
					fmt.Fprintf(out, "\n%d total, %d completed, %d pending\n", stats.Total, stats.Completed, stats.Pending)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(tasks.FilterAll), "Filter by status: all, pending or completed")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Case-insensitive substring of the title")
	cmd.Flags().StringVar(&sortBy, "sort", string(tasks.SortByCreated), "Sort by created_at, priority or due_date")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tasks as JSON")
	cmd.Flags().BoolVar(&noStats, "no-stats", false, "Do not print the counts line")
	return cmd
}

func newTasksAddCmd() *cobra.Command {
	var (
		description string
		priority    string
		due         string
	)

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := tasks.TaskInput{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    tasks.Priority(priority),
			}
			if due != "" {
				ts, err := tasks.ParseTimestamp(due)
				if err != nil {
					return apierror.NewValidationError("due", err.Error())
				}
				input.DueDate = &ts
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				task, err := a.tasks.Create(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s\n", task.ID, task.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Longer description")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(tasks.PriorityMedium), "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "Due date as YYYY-MM-DD or RFC3339 timestamp")
	return cmd
}

func newTasksUpdateCmd() *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
		due         string
		clearDue    bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change fields of a task",
		Long:  "Change fields of a task. Only the flags you pass are sent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch tasks.Patch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("status") {
				s := tasks.Status(status)
				patch.Status = &s
			}
			if flags.Changed("priority") {
				p := tasks.Priority(priority)
				patch.Priority = &p
			}
			if flags.Changed("due") {
				ts, err := tasks.ParseTimestamp(due)
				if err != nil {
					return apierror.NewValidationError("due", err.Error())
				}
				patch.DueDate = &ts
			}
			patch.ClearDueDate = clearDue

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				task, err := a.tasks.Update(ctx, tasks.ID(args[0]), patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s: %s\n", task.ID, task.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "pending or completed")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "New due date as YYYY-MM-DD or RFC3339 timestamp")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

var errNoSuchTask = errors.New("no such task")

// newTasksBatchCmd builds a command applying op to every id argument.
func newTasksBatchCmd(use, short, verb string, op func(ctx context.Context, c *tasks.Client, id tasks.ID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}

				var expired atomic.Pointer[apierror.SessionExpiredError]
				results := batch.Process(ctx, args, a.tasks.BulkConcurrency(), func(ctx context.Context, id string) (string, error) {
					err := op(ctx, a.tasks, tasks.ID(id))
					var sessionErr *apierror.SessionExpiredError
					if errors.As(err, &sessionErr) {
						expired.Store(sessionErr)
					}
					if apierror.IsNotFound(err) {
						return "", errNoSuchTask
					}
					if err != nil {
						return "", errors.New(apierror.UserMessage(err))
					}
					return verb, nil
				})

				if err := reportBatch(cmd.OutOrStdout(), results); err != nil {
					if sessionErr := expired.Load(); sessionErr != nil {
						return sessionErr
					}
					return err
				}
				return nil
			})
		},
	}
}

// reportBatch prints one line per id and fails when any id failed.
func reportBatch(w io.Writer, results []batch.Result) error {
	summary := batch.Summarize(results)
	for _, r := range summary.Results {
		if r.Status == batch.StatusSuccess {
			fmt.Fprintf(w, "%s: %s\n", r.ID, r.Result)
		} else {
			fmt.Fprintf(w, "%s: failed: %s\n", r.ID, r.Error)
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", summary.Failed, summary.Total)
	}
	return nil
}

func newTasksCompleteAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete-all",
		Short: "Mark every pending task as completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				list, err := a.tasks.List(ctx)
				if err != nil {
					return err
				}
				merged, err := a.tasks.MarkAllComplete(ctx, list)
				changed := tasks.ComputeStats(merged).Completed - tasks.ComputeStats(list).Completed
				fmt.Fprintf(cmd.OutOrStdout(), "Completed %d tasks\n", changed)
				return err
			})
		},
	}
}

func newTasksClearCompletedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.requireSession(ctx); err != nil {
					return err
				}
				list, err := a.tasks.List(ctx)
				if err != nil {
					return err
				}
				remaining, err := a.tasks.DeleteCompleted(ctx, list)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d completed tasks\n", len(list)-len(remaining))
				return err
			})
		},
	}
}

// writeTaskTable prints tasks as aligned columns.
func writeTaskTable(w io.Writer, list []tasks.Task) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No tasks")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE")
	for _, t := range list {
		dueText := "-"
		if d, ok := t.Due(); ok {
			dueText = d.Format(tasks.DateLayout)
		}
		mark := " "
		if t.IsCompleted() {
			mark = "x"
		}
		fmt.Fprintf(tw, "%s\t[%s] %s\t%s\t%s\t%s\n", t.ID, mark, t.Status, t.Priority, dueText, t.Title)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
