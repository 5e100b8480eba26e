package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/taskpulse/internal/api"
	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/logging"
)

// DefaultBulkConcurrency caps in-flight requests of bulk operations.
const DefaultBulkConcurrency = 4

const (
	collectionPath = "/tasks/"
	itemRoute      = "/tasks/{id}/"
	resourceName   = "task"
)

// Client manages tasks through the task API.
type Client struct {
	api         *api.Client
	logger      *slog.Logger
	concurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBulkConcurrency overrides DefaultBulkConcurrency.
func WithBulkConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewClient creates a task client on top of an authenticated api.Client.
func NewClient(apiClient *api.Client, opts ...Option) *Client {
	c := &Client{
		api:         apiClient,
		logger:      slog.Default(),
		concurrency: DefaultBulkConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "tasks")
	return c
}

// itemPath escapes id so it stays one path segment.
func itemPath(id ID) string {
	return "/tasks/" + url.PathEscape(id.String()) + "/"
}

// BulkConcurrency returns the cap on in-flight requests of bulk operations.
func (c *Client) BulkConcurrency() int {
	return c.concurrency
}

// List returns all tasks of the signed-in user. Both a bare array and a
// paginated {"results": [...]} body are accepted.
func (c *Client) List(ctx context.Context) ([]Task, error) {
	var raw json.RawMessage
	if err := c.api.Do(ctx, api.Request{Method: http.MethodGet, Path: collectionPath}, &raw); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	list, err := decodeTaskList(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return list, nil
}

func decodeTaskList(raw json.RawMessage) ([]Task, error) {
	if len(raw) == 0 {
		return []Task{}, nil
	}

	var list []Task
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []Task{}
		}
		return list, nil
	}

	var page struct {
		Results []Task `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("unexpected task list body: %w", err)
	}
	if page.Results == nil {
		page.Results = []Task{}
	}
	return page.Results, nil
}

// Create validates in and creates a task.
func (c *Client) Create(ctx context.Context, in TaskInput) (*Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created Task
	err := c.api.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   collectionPath,
		Body:   in,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	c.logger.DebugContext(ctx, "task created",
		logging.Operation("tasks.create"),
		slog.String("task_id", created.ID.String()))
	return &created, nil
}

// Update applies a partial update. A stale id yields *apierror.NotFoundError.
func (c *Client) Update(ctx context.Context, id ID, patch Patch) (*Task, error) {
	if id == "" {
		return nil, apierror.NewValidationError("id", "task id is required")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated Task
	err := c.api.Do(ctx, api.Request{
		Method:   http.MethodPatch,
		Path:     itemPath(id),
		Route:    itemRoute,
		Body:     patch,
		Resource: resourceName,
		ID:       id.String(),
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return &updated, nil
}

// Complete marks one task completed.
func (c *Client) Complete(ctx context.Context, id ID) (*Task, error) {
	status := StatusCompleted
	return c.Update(ctx, id, Patch{Status: &status})
}

// Delete removes a task. A stale id yields *apierror.NotFoundError.
func (c *Client) Delete(ctx context.Context, id ID) error {
	if id == "" {
		return apierror.NewValidationError("id", "task id is required")
	}

	err := c.api.Do(ctx, api.Request{
		Method:   http.MethodDelete,
		Path:     itemPath(id),
		Route:    itemRoute,
		Resource: resourceName,
		ID:       id.String(),
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return nil
}

// DeleteCompleted deletes every completed task in list and returns the
// list without the tasks that were deleted. On error the returned list
// still reflects the deletions that succeeded.
func (c *Client) DeleteCompleted(ctx context.Context, list []Task) ([]Task, error) {
	var (
		mu      sync.Mutex
		deleted = make(map[ID]bool)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, task := range list {
		if !task.IsCompleted() {
			continue
		}
		g.Go(func() error {
			if err := c.Delete(gctx, task.ID); err != nil {
				return err
			}
			mu.Lock()
			deleted[task.ID] = true
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	remaining := make([]Task, 0, len(list))
	for _, task := range list {
		if !deleted[task.ID] {
			remaining = append(remaining, task)
		}
	}

	c.logger.InfoContext(ctx, "cleared completed tasks",
		logging.Operation("tasks.delete_completed"),
		slog.Int("deleted", len(deleted)),
		logging.Err(err))
	return remaining, err
}

// MarkAllComplete completes every pending task in list and returns the list
// with the updated tasks swapped in. On error the returned list still
// reflects the updates that succeeded.
func (c *Client) MarkAllComplete(ctx context.Context, list []Task) ([]Task, error) {
	var (
		mu      sync.Mutex
		updated = make(map[ID]Task)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, task := range list {
		if !task.IsPending() {
			continue
		}
		g.Go(func() error {
			done, err := c.Complete(gctx, task.ID)
			if err != nil {
				return err
			}
			mu.Lock()
			updated[task.ID] = *done
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	merged := make([]Task, len(list))
	for i, task := range list {
		if u, ok := updated[task.ID]; ok {
			merged[i] = u
		} else {
			merged[i] = task
		}
	}

	c.logger.InfoContext(ctx, "completed pending tasks",
		logging.Operation("tasks.mark_all_complete"),
		slog.Int("completed", len(updated)),
		logging.Err(err))
	return merged, err
}
