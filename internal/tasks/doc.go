// Package tasks is the client for the task API.
//
// It wraps four endpoints (GET/POST /tasks/, PATCH/DELETE /tasks/{id}/) and
// adds the list operations the dashboard needs:
//   - bulk completion and bulk deletion of completed tasks, fanned out with
//     bounded concurrency
//   - filtering by status and title, and sorting by creation time,
//     priority or due date (Query)
//   - total/completed/pending counts (ComputeStats)
//
// Authentication is not handled here. The api.Client passed to NewClient is
// expected to carry a session.Transport.
//
// # Example Usage
//
//	client := tasks.NewClient(apiClient)
//
//	list, err := client.List(ctx)
//	if err != nil {
//	    return err
//	}
//
//	pending := tasks.Query{Status: tasks.FilterPending, SortBy: tasks.SortByDueDate}.Apply(list)
//
//	created, err := client.Create(ctx, tasks.TaskInput{
//	    Title:    "Ship release notes",
//	    Priority: tasks.PriorityHigh,
//	})
package tasks
