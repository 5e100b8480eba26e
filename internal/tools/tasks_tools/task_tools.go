package tasks_tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskpulse/internal/server"
	"github.com/teemow/taskpulse/internal/tasks"
	"github.com/teemow/taskpulse/internal/tools/batch"
	"github.com/teemow/taskpulse/internal/tools/common"
)

func registerTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listTool := mcp.NewTool("tasks_list",
		mcp.WithDescription("List tasks with optional status filter, title search and sorting. Also returns counts over all tasks."),
		mcp.WithString("status",
			mcp.Description("Filter by status: all, pending or completed (default: all)"),
			mcp.Enum(string(tasks.FilterAll), string(tasks.FilterPending), string(tasks.FilterCompleted)),
		),
		mcp.WithString("search",
			mcp.Description("Case-insensitive substring of the title"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Sort order: created_at (newest first, default), priority (high first) or due_date (soonest first, undated last)"),
			mcp.Enum(string(tasks.SortByCreated), string(tasks.SortByPriority), string(tasks.SortByDueDate)),
		),
	)
	addTool(s, sc, listTool, handleListTasks(sc))

	if readOnly {
		return
	}

	createTool := mcp.NewTool("tasks_create",
		mcp.WithDescription("Create a new task"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title of the task"),
		),
		mcp.WithString("description",
			mcp.Description("Longer description"),
		),
		mcp.WithString("priority",
			mcp.Description("low, medium (default) or high"),
			mcp.Enum(string(tasks.PriorityLow), string(tasks.PriorityMedium), string(tasks.PriorityHigh)),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date as YYYY-MM-DD or RFC3339 timestamp"),
		),
	)
	addTool(s, sc, createTool, handleCreateTask(sc))

	updateTool := mcp.NewTool("tasks_update",
		mcp.WithDescription("Update fields of a task. Only the given fields change."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("ID of the task"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("status",
			mcp.Description("pending or completed"),
			mcp.Enum(string(tasks.StatusPending), string(tasks.StatusCompleted)),
		),
		mcp.WithString("priority",
			mcp.Description("low, medium or high"),
			mcp.Enum(string(tasks.PriorityLow), string(tasks.PriorityMedium), string(tasks.PriorityHigh)),
		),
		mcp.WithString("due_date",
			mcp.Description("New due date as YYYY-MM-DD or RFC3339 timestamp"),
		),
		mcp.WithBoolean("clear_due_date",
			mcp.Description("Remove the due date"),
		),
	)
	addTool(s, sc, updateTool, handleUpdateTask(sc))

	completeTool := mcp.NewTool("tasks_complete",
		mcp.WithDescription("Mark one or more tasks as completed"),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Task ID or array of task IDs"),
		),
	)
	addTool(s, sc, completeTool, handleBatch(sc, "completed", func(ctx context.Context, id tasks.ID) error {
		_, err := sc.Tasks().Complete(ctx, id)
		return err
	}))

	deleteTool := mcp.NewTool("tasks_delete",
		mcp.WithDescription("Delete one or more tasks"),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Task ID or array of task IDs"),
		),
	)
	addTool(s, sc, deleteTool, handleBatch(sc, "deleted", sc.Tasks().Delete))

	completeAllTool := mcp.NewTool("tasks_complete_all",
		mcp.WithDescription("Mark every pending task as completed"),
	)
	addTool(s, sc, completeAllTool, handleCompleteAll(sc))

	clearTool := mcp.NewTool("tasks_clear_completed",
		mcp.WithDescription("Delete every completed task"),
	)
	addTool(s, sc, clearTool, handleClearCompleted(sc))
}

type listResult struct {
	Tasks []tasks.Task  `json:"tasks"`
	Count int           `json:"count"`
	Stats tasks.Stats   `json:"stats"`
	Query listQueryEcho `json:"query"`
}

type listQueryEcho struct {
	Status string `json:"status"`
	Search string `json:"search,omitempty"`
	SortBy string `json:"sort_by"`
}

func handleListTasks(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		statusArg, _ := stringArg(args, "status")
		status, err := tasks.ParseStatusFilter(statusArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sortArg, _ := stringArg(args, "sort_by")
		sortBy, err := tasks.ParseSortKey(sortArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		search, _ := stringArg(args, "search")

		list, err := sc.Tasks().List(ctx)
		if err != nil {
			return common.ErrorResult("list tasks", err), nil
		}

		filtered := tasks.Query{Status: status, Search: search, SortBy: sortBy}.Apply(list)
		return common.JSONResult(listResult{
			Tasks: filtered,
			Count: len(filtered),
			Stats: tasks.ComputeStats(list),
			Query: listQueryEcho{Status: string(status), Search: search, SortBy: string(sortBy)},
		})
	}
}

func handleCreateTask(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		title, _ := stringArg(args, "title")
		if title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		description, _ := stringArg(args, "description")
		priority, _ := stringArg(args, "priority")
		due, err := dateArg(args, "due_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		task, err := sc.Tasks().Create(ctx, tasks.TaskInput{
			Title:       title,
			Description: description,
			Priority:    tasks.Priority(priority),
			DueDate:     due,
		})
		if err != nil {
			return common.ErrorResult("create task", err), nil
		}
		return common.JSONResult(task)
	}
}

func handleUpdateTask(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		ids, err := batch.ParseIDs(args["id"], "id")
		if err != nil || len(ids) != 1 {
			return mcp.NewToolResultError("id must be a single task ID"), nil
		}

		var patch tasks.Patch
		if v, ok := stringArg(args, "title"); ok {
			patch.Title = &v
		}
		if v, ok := args["description"].(string); ok {
			patch.Description = &v
		}
		if v, ok := stringArg(args, "status"); ok && v != "" {
			status := tasks.Status(v)
			patch.Status = &status
		}
		if v, ok := stringArg(args, "priority"); ok && v != "" {
			priority := tasks.Priority(v)
			patch.Priority = &priority
		}
		if patch.DueDate, err = dateArg(args, "due_date"); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patch.ClearDueDate = boolArg(args, "clear_due_date")

		task, err := sc.Tasks().Update(ctx, tasks.ID(ids[0]), patch)
		if err != nil {
			return common.ErrorResult("update task", err), nil
		}
		return common.JSONResult(task)
	}
}

// handleBatch applies op to every id in the "ids" argument.
func handleBatch(sc *server.ServerContext, verb string, op func(ctx context.Context, id tasks.ID) error) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := batch.ParseIDs(request.GetArguments()["ids"], "ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results := batch.Process(ctx, ids, sc.Tasks().BulkConcurrency(), func(ctx context.Context, id string) (string, error) {
			if err := op(ctx, tasks.ID(id)); err != nil {
				return "", errors.New(common.ErrorMessage(err))
			}
			return verb, nil
		})

		summary := batch.Summarize(results)
		result, err := common.JSONResult(summary)
		if err != nil {
			return nil, err
		}
		if summary.Failed == summary.Total {
			result.IsError = true
		}
		return result, nil
	}
}

type bulkResult struct {
	Changed int         `json:"changed"`
	Stats   tasks.Stats `json:"stats"`
	Error   string      `json:"error,omitempty"`
}

func handleCompleteAll(sc *server.ServerContext) common.ToolHandler {
	return bulkHandler(sc, "complete all tasks", func(ctx context.Context, list []tasks.Task) ([]tasks.Task, int, error) {
		merged, err := sc.Tasks().MarkAllComplete(ctx, list)
		changed := tasks.ComputeStats(merged).Completed - tasks.ComputeStats(list).Completed
		return merged, changed, err
	})
}

func handleClearCompleted(sc *server.ServerContext) common.ToolHandler {
	return bulkHandler(sc, "clear completed tasks", func(ctx context.Context, list []tasks.Task) ([]tasks.Task, int, error) {
		remaining, err := sc.Tasks().DeleteCompleted(ctx, list)
		return remaining, len(list) - len(remaining), err
	})
}

// bulkHandler lists all tasks, applies op and reports the resulting counts.
// A partial failure is reported as an error result that still carries the
// counts of what succeeded.
func bulkHandler(sc *server.ServerContext, action string, op func(ctx context.Context, list []tasks.Task) ([]tasks.Task, int, error)) common.ToolHandler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := sc.Tasks().List(ctx)
		if err != nil {
			return common.ErrorResult(action, err), nil
		}

		after, changed, opErr := op(ctx, list)
		out := bulkResult{Changed: changed, Stats: tasks.ComputeStats(after)}
		if opErr != nil {
			out.Error = common.ErrorMessage(opErr)
		}

		result, err := common.JSONResult(out)
		if err != nil {
			return nil, err
		}
		result.IsError = opErr != nil
		return result, nil
	}
}
