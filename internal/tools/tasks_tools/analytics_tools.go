package tasks_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/server"
	"github.com/teemow/taskpulse/internal/tasks"
	"github.com/teemow/taskpulse/internal/tools/common"
)

// Growth score ranges, matching the dashboard chart.
const (
	range7Days   = "7d"
	range30Days  = "30d"
	rangeCustom  = "custom"
	maxToolRange = 366
)

func registerAnalyticsTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	perDayTool := mcp.NewTool("analytics_completed_per_day",
		mcp.WithDescription("Number of tasks completed on each of the last N days, today included"),
		mcp.WithNumber("window_days",
			mcp.Description(fmt.Sprintf("Number of days (default: %d, max: %d)", analytics.DefaultWindowDays, maxToolRange)),
		),
	)
	addTool(s, sc, perDayTool, handleCompletedPerDay(sc))

	growthTool := mcp.NewTool("analytics_growth_score",
		mcp.WithDescription("Cumulative growth score per day: +1 per completed task, -0.5 per pending task due that day, never below zero"),
		mcp.WithString("range",
			mcp.Description("7d (default), 30d, or custom with start_date and end_date"),
			mcp.Enum(range7Days, range30Days, rangeCustom),
		),
		mcp.WithString("start_date",
			mcp.Description("First day (YYYY-MM-DD) for a custom range"),
		),
		mcp.WithString("end_date",
			mcp.Description("Last day (YYYY-MM-DD) for a custom range"),
		),
	)
	addTool(s, sc, growthTool, handleGrowthScore(sc))

	todayTool := mcp.NewTool("analytics_today_progress",
		mcp.WithDescription("Percentage of tasks due today that are completed (0 when nothing is due today)"),
	)
	addTool(s, sc, todayTool, handleTodayProgress(sc))

	summaryTool := mcp.NewTool("analytics_summary",
		mcp.WithDescription("Dashboard summary: greeting, completed per day, 30-day growth score, today's progress, upcoming tasks and counts"),
		mcp.WithNumber("window_days",
			mcp.Description(fmt.Sprintf("Window for completed per day (default: %d)", analytics.DefaultWindowDays)),
		),
	)
	addTool(s, sc, summaryTool, handleSummary(sc))

	remindersTool := mcp.NewTool("analytics_reminders",
		mcp.WithDescription("Reminders for upcoming tasks and for tasks still pending at the end of the day"),
	)
	addTool(s, sc, remindersTool, handleReminders(sc))
}

// listAll fetches every task; analytics always work on the full list.
func listAll(ctx context.Context, sc *server.ServerContext) ([]tasks.Task, *mcp.CallToolResult) {
	list, err := sc.Tasks().List(ctx)
	if err != nil {
		return nil, common.ErrorResult("list tasks", err)
	}
	return list, nil
}

func windowArg(args map[string]any) (int, error) {
	window, err := intArg(args, "window_days", analytics.DefaultWindowDays)
	if err != nil {
		return 0, err
	}
	if window < 1 || window > maxToolRange {
		return 0, fmt.Errorf("window_days must be between 1 and %d", maxToolRange)
	}
	return window, nil
}

func handleCompletedPerDay(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		window, err := windowArg(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		list, errResult := listAll(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return common.JSONResult(sc.Engine().CompletedPerDay(list, window))
	}
}

// growthRange resolves the range arguments to an inclusive date range.
func growthRange(sc *server.ServerContext, args map[string]any) (analytics.DateRange, error) {
	kind, _ := stringArg(args, "range")
	switch kind {
	case "", range7Days:
		return sc.Engine().TrailingRange(7), nil
	case range30Days:
		return sc.Engine().TrailingRange(30), nil
	case rangeCustom:
		start, err := dateArg(args, "start_date")
		if err != nil {
			return analytics.DateRange{}, err
		}
		end, err := dateArg(args, "end_date")
		if err != nil {
			return analytics.DateRange{}, err
		}
		if start == nil || end == nil {
			return analytics.DateRange{}, fmt.Errorf("start_date and end_date are required for a custom range")
		}
		r := analytics.DateRange{Start: start.Time, End: end.Time}
		if r.SpanDays(sc.Engine().Location()) > maxToolRange {
			return analytics.DateRange{}, fmt.Errorf("custom range must not exceed %d days", maxToolRange)
		}
		return r, nil
	default:
		return analytics.DateRange{}, fmt.Errorf("unknown range %q, must be 7d, 30d or custom", kind)
	}
}

func handleGrowthScore(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r, err := growthRange(sc, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		list, errResult := listAll(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}

		series, err := sc.Engine().GrowthScoreOverRange(list, r.Start, r.End)
		if err != nil {
			return common.ErrorResult("compute growth score", err), nil
		}
		return common.JSONResult(series)
	}
}

type todayProgress struct {
	Percentage int `json:"percentage"`
}

func handleTodayProgress(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, errResult := listAll(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return common.JSONResult(todayProgress{Percentage: sc.Engine().TodayCompletionPercentage(list)})
	}
}

func handleSummary(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		window, err := windowArg(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		list, errResult := listAll(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return common.JSONResult(sc.Engine().Summary(list, window))
	}
}

type reminders struct {
	Upcoming *analytics.Reminder `json:"upcoming,omitempty"`
	EndOfDay analytics.Reminder  `json:"end_of_day"`
}

func handleReminders(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, errResult := listAll(ctx, sc)
		if errResult != nil {
			return errResult, nil
		}
		return common.JSONResult(reminders{
			Upcoming: sc.Engine().UpcomingReminder(list),
			EndOfDay: analytics.EndOfDayReminder(tasks.ComputeStats(list)),
		})
	}
}
