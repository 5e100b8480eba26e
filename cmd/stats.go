package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/tasks"
)

func newStatsCmd() *cobra.Command {
	var (
		window    int
		growthFor int
		from      string
		to        string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show your progress",
		Long: `Show tasks completed per day, the growth score, today's progress and
upcoming tasks.

The growth score adds 1 for every task completed on a day and subtracts 0.5
for every pending task due that day. It never drops below zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window < 1 || window > analytics.MaxRangeDays {
				return apierror.NewValidationError("window", fmt.Sprintf("window must be between 1 and %d days", analytics.MaxRangeDays))
			}
			if growthFor < 1 || growthFor > analytics.MaxRangeDays {
				return apierror.NewValidationError("growth-days", fmt.Sprintf("growth days must be between 1 and %d", analytics.MaxRangeDays))
			}
			if (from == "") != (to == "") {
				return apierror.NewValidationError("from", "--from and --to must be given together")
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				r := a.engine.TrailingRange(growthFor)
				if from != "" {
					start, err := time.ParseInLocation(tasks.DateLayout, from, a.engine.Location())
					if err != nil {
						return apierror.NewValidationError("from", fmt.Sprintf("invalid date %q: want YYYY-MM-DD", from))
					}
					end, err := time.ParseInLocation(tasks.DateLayout, to, a.engine.Location())
					if err != nil {
						return apierror.NewValidationError("to", fmt.Sprintf("invalid date %q: want YYYY-MM-DD", to))
					}
					r = analytics.DateRange{Start: start, End: end}
				}

				if err := a.requireSession(ctx); err != nil {
					return err
				}
				list, err := a.tasks.List(ctx)
				if err != nil {
					return err
				}

				report, err := a.engine.Report(list, window, r)
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				if user, err := a.auth.CurrentUser(ctx); err == nil && user != nil && user.Username != "" {
					report.Greeting += ", " + user.Username
				}
				return writeStats(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.Flags().IntVarP(&window, "window", "w", analytics.DefaultWindowDays, "Days of completed tasks to show, today included")
	cmd.Flags().IntVar(&growthFor, "growth-days", analytics.DefaultWindowDays, "Days of growth score to show, today included")
	cmd.Flags().StringVar(&from, "from", "", "First day of a custom growth score range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day of a custom growth score range (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.MarkFlagsMutuallyExclusive("growth-days", "from")
	return cmd
}

func writeStats(w io.Writer, r analytics.Summary) error {
	fmt.Fprintf(w, "%s!\n\n", r.Greeting)
	fmt.Fprintf(w, "Today's progress: %d%%\n", r.TodayPercentage)
	fmt.Fprintf(w, "Tasks: %d total, %d completed, %d pending\n\n", r.Stats.Total, r.Stats.Completed, r.Stats.Pending)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tCOMPLETED\t")
	for i, label := range r.CompletedPerDay.Labels {
		n := r.CompletedPerDay.Series[i]
		fmt.Fprintf(tw, "%s\t%d\t%s\n", label, n, strings.Repeat("#", n))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tGROWTH\t")
	for i, label := range r.GrowthScore.Labels {
		score := r.GrowthScore.Series[i]
		fmt.Fprintf(tw, "%s\t%.1f\t%s\n", label, score, strings.Repeat("#", int(score)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if len(r.Upcoming) == 0 {
		_, err := fmt.Fprintln(w, "No upcoming tasks")
		return err
	}
	fmt.Fprintln(w, "Upcoming:")
	for _, t := range r.Upcoming {
		due, _ := t.Due()
		fmt.Fprintf(w, "  %s  %s (%s)\n", due.Format(tasks.DateLayout), t.Title, t.Priority)
	}
	return nil
}

func newRemindCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Show reminders for upcoming and pending tasks",
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

				reminders := make([]analytics.Reminder, 0, 2)
				if upcoming := a.engine.UpcomingReminder(list); upcoming != nil {
					reminders = append(reminders, *upcoming)
				}
				reminders = append(reminders, analytics.EndOfDayReminder(tasks.ComputeStats(list)))

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), reminders)
				}
				for _, r := range reminders {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n", r.Title, r.Body)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reminders as JSON")
	return cmd
}
