package tasks_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/api"
	"github.com/teemow/taskpulse/internal/auth"
	"github.com/teemow/taskpulse/internal/server"
	"github.com/teemow/taskpulse/internal/session"
	"github.com/teemow/taskpulse/internal/session/sessiontest"
	"github.com/teemow/taskpulse/internal/tasks"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeBackend serves the task collection and requires a bearer token.
type fakeBackend struct {
	mu     sync.Mutex
	tasks  map[string]map[string]any
	nextID int
	failID string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tasks: make(map[string]map[string]any), nextID: 100}
}

func (f *fakeBackend) add(id string, fields map[string]any) {
	task := map[string]any{
		"id": json.Number(id), "priority": "medium", "status": "pending",
		"created_at": "2026-03-01T09:00:00Z",
	}
	for k, v := range fields {
		task[k] = v
	}
	f.tasks[id] = task
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"detail": "Authentication credentials were not provided."}`, http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/tasks/" {
		switch r.Method {
		case http.MethodGet:
			ids := make([]string, 0, len(f.tasks))
			for id := range f.tasks {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			list := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				list = append(list, f.tasks[id])
			}
			_ = json.NewEncoder(w).Encode(list)
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			id := fmt.Sprint(f.nextID)
			f.nextID++
			body["id"] = json.Number(id)
			body["status"] = "pending"
			body["created_at"] = "2026-03-10T11:00:00Z"
			f.tasks[id] = body
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(body)
		}
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
	task, ok := f.tasks[id]
	if !ok {
		http.Error(w, `{"detail": "Not found."}`, http.StatusNotFound)
		return
	}
	if id == f.failID {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var patch map[string]any
		_ = json.NewDecoder(r.Body).Decode(&patch)
		for k, v := range patch {
			task[k] = v
		}
		task["updated_at"] = testNow.Format(time.RFC3339)
		_ = json.NewEncoder(w).Encode(task)
	case http.MethodDelete:
		delete(f.tasks, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

type fixture struct {
	backend  *fakeBackend
	sc       *server.ServerContext
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	plain := api.NewClient(srv.URL, srv.Client())
	sessions := session.NewManager(session.NewMemoryStore(), session.NewHTTPRefresher(plain),
		session.WithClock(func() time.Time { return testNow }))
	authed := api.NewClient(srv.URL, &http.Client{
		Transport: &session.Transport{Base: srv.Client().Transport, Sessions: sessions},
	})

	sc, err := server.NewServerContext(context.Background(), server.Dependencies{
		Tasks:    tasks.NewClient(authed),
		Auth:     auth.NewClient(plain, sessions),
		Sessions: sessions,
		Engine: analytics.NewEngine(
			analytics.WithClock(func() time.Time { return testNow }),
			analytics.WithLocation(time.UTC),
		),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	return &fixture{backend: backend, sc: sc, sessions: sessions}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sessions.Set(context.Background(), session.Session{
		AccessToken:  sessiontest.Token(t, "alice", testNow.Add(time.Hour)),
		RefreshToken: "refresh",
	}))
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return result, text.Text
}

func decode[T any](t *testing.T, text string) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal([]byte(text), &out), text)
	return out
}

func TestRegisterTasksTools(t *testing.T) {
	f := newFixture(t)

	readOnlyTools := []string{
		"analytics_completed_per_day",
		"analytics_growth_score",
		"analytics_reminders",
		"analytics_summary",
		"analytics_today_progress",
		"session_status",
		"tasks_list",
	}
	writeTools := []string{
		"tasks_clear_completed",
		"tasks_complete",
		"tasks_complete_all",
		"tasks_create",
		"tasks_delete",
		"tasks_update",
	}

	tests := []struct {
		name     string
		readOnly bool
		want     []string
	}{
		{name: "read only", readOnly: true, want: readOnlyTools},
		{name: "read write", readOnly: false, want: append(append([]string{}, readOnlyTools...), writeTools...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
			require.NoError(t, RegisterTasksTools(s, f.sc, tt.readOnly))

			var names []string
			for name := range s.ListTools() {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}

	assert.Error(t, RegisterTasksTools(nil, f.sc, true))
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.add("1", map[string]any{"title": "Write report", "priority": "low"})
	f.backend.add("2", map[string]any{"title": "Buy milk", "priority": "high"})
	f.backend.add("3", map[string]any{"title": "Report bug", "status": "completed"})

	result, text := call(t, handleListTasks(f.sc), map[string]any{
		"status":  "pending",
		"search":  "REPORT",
		"sort_by": "priority",
	})
	assert.False(t, result.IsError)

	out := decode[listResult](t, text)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Write report", out.Tasks[0].Title)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, tasks.Stats{Total: 3, Completed: 1, Pending: 2}, out.Stats, "stats cover all tasks")

	result, text = call(t, handleListTasks(f.sc), map[string]any{"sort_by": "title"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "title")
}

func TestListTasks_NoSession(t *testing.T) {
	f := newFixture(t)

	result, text := call(t, handleListTasks(f.sc), nil)
	assert.True(t, result.IsError)
	assert.Contains(t, text, "Failed to list tasks")
}

func TestCreateAndUpdateTask(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	result, text := call(t, handleCreateTask(f.sc), map[string]any{"title": "  "})
	assert.True(t, result.IsError)
	assert.Equal(t, "title is required", text)

	result, text = call(t, handleCreateTask(f.sc), map[string]any{
		"title":    "Plan trip",
		"priority": "high",
		"due_date": "2026-03-12T09:00:00Z",
	})
	require.False(t, result.IsError, text)
	created := decode[tasks.Task](t, text)
	assert.Equal(t, "Plan trip", created.Title)
	assert.Equal(t, tasks.PriorityHigh, created.Priority)
	due, ok := created.Due()
	require.True(t, ok)
	assert.Equal(t, 12, due.Day())

	result, text = call(t, handleUpdateTask(f.sc), map[string]any{
		"id":     string(created.ID),
		"status": "completed",
	})
	require.False(t, result.IsError, text)
	updated := decode[tasks.Task](t, text)
	assert.True(t, updated.IsCompleted())

	result, text = call(t, handleUpdateTask(f.sc), map[string]any{"id": "404", "title": "x"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "Failed to update task")

	result, _ = call(t, handleUpdateTask(f.sc), map[string]any{"id": []any{"1", "2"}})
	assert.True(t, result.IsError)
}

func TestBatchTools(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.add("1", map[string]any{"title": "a"})
	f.backend.add("2", map[string]any{"title": "b"})
	f.backend.add("3", map[string]any{"title": "c"})
	f.backend.failID = "3"

	complete := handleBatch(f.sc, "completed", func(ctx context.Context, id tasks.ID) error {
		_, err := f.sc.Tasks().Complete(ctx, id)
		return err
	})

	result, text := call(t, complete, map[string]any{"ids": []any{"1", float64(2), "3"}})
	assert.False(t, result.IsError, "partial failure is not an error result")

	out := decode[struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
		Results    []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"results"`
	}](t, text)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Successful)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 3)
	assert.Equal(t, "3", out.Results[2].ID, "input order kept")

	result, _ = call(t, handleBatch(f.sc, "deleted", f.sc.Tasks().Delete), map[string]any{"ids": "404"})
	assert.True(t, result.IsError, "all ids failed")

	result, _ = call(t, complete, map[string]any{})
	assert.True(t, result.IsError)
}

func TestBulkTools(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.add("1", map[string]any{"title": "a"})
	f.backend.add("2", map[string]any{"title": "b"})
	f.backend.add("3", map[string]any{"title": "c", "status": "completed"})

	result, text := call(t, handleCompleteAll(f.sc), nil)
	require.False(t, result.IsError, text)
	out := decode[bulkResult](t, text)
	assert.Equal(t, 2, out.Changed)
	assert.Equal(t, tasks.Stats{Total: 3, Completed: 3, Pending: 0}, out.Stats)

	result, text = call(t, handleClearCompleted(f.sc), nil)
	require.False(t, result.IsError, text)
	out = decode[bulkResult](t, text)
	assert.Equal(t, 3, out.Changed)
	assert.Equal(t, tasks.Stats{}, out.Stats)
}

func TestBulkTools_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.add("1", map[string]any{"title": "a", "status": "completed"})
	f.backend.add("2", map[string]any{"title": "b", "status": "completed"})
	f.backend.failID = "2"

	result, text := call(t, handleClearCompleted(f.sc), nil)
	assert.True(t, result.IsError)
	out := decode[bulkResult](t, text)
	assert.LessOrEqual(t, out.Changed, 1)
	assert.Equal(t, 2, out.Changed+out.Stats.Total, "counts reflect what was deleted")
	assert.NotEmpty(t, out.Error)
}

// seedAnalytics stores tasks around testNow (2026-03-10).
func seedAnalytics(f *fixture) {
	f.backend.add("1", map[string]any{"title": "done today", "status": "completed", "due_date": "2026-03-10T08:00:00Z", "updated_at": "2026-03-10T10:00:00Z"})
	f.backend.add("2", map[string]any{"title": "due today", "due_date": "2026-03-10T18:00:00Z"})
	f.backend.add("3", map[string]any{"title": "done yesterday", "status": "completed", "updated_at": "2026-03-09T10:00:00Z"})
	f.backend.add("4", map[string]any{"title": "missed", "due_date": "2026-03-08T09:00:00Z"})
	f.backend.add("5", map[string]any{"title": "later", "due_date": "2026-03-15T09:00:00Z"})
}

func TestAnalyticsCompletedPerDay(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	seedAnalytics(f)

	result, text := call(t, handleCompletedPerDay(f.sc), map[string]any{"window_days": float64(3)})
	require.False(t, result.IsError, text)

	out := decode[analytics.CountSeries](t, text)
	assert.Equal(t, []string{"Mar 8", "Mar 9", "Mar 10"}, out.Labels)
	assert.Equal(t, []int{0, 1, 1}, out.Series)

	for _, bad := range []any{float64(0), float64(1.5), "7", float64(maxToolRange + 1)} {
		result, _ := call(t, handleCompletedPerDay(f.sc), map[string]any{"window_days": bad})
		assert.True(t, result.IsError, "window_days=%v", bad)
	}
}

func TestAnalyticsGrowthScore(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	seedAnalytics(f)

	tests := []struct {
		name       string
		args       map[string]any
		wantLabels []string
		wantSeries []float64
		wantErr    string
	}{
		{
			name: "custom",
			args: map[string]any{"range": "custom", "start_date": "2026-03-08T00:00:00Z", "end_date": "2026-03-10T00:00:00Z"},
			// Mar 8: -0.5 floored to 0, Mar 9: +1, Mar 10: +1 -0.5
			wantLabels: []string{"Mar 8", "Mar 9", "Mar 10"},
			wantSeries: []float64{0, 1, 1.5},
		},
		{
			name:    "custom without end",
			args:    map[string]any{"range": "custom", "start_date": "2026-03-08T00:00:00Z"},
			wantErr: "start_date and end_date are required",
		},
		{
			name:    "end before start",
			args:    map[string]any{"range": "custom", "start_date": "2026-03-10T00:00:00Z", "end_date": "2026-03-08T00:00:00Z"},
			wantErr: "Failed to compute growth score",
		},
		{
			name:    "unknown range",
			args:    map[string]any{"range": "90d"},
			wantErr: "unknown range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, text := call(t, handleGrowthScore(f.sc), tt.args)
			if tt.wantErr != "" {
				assert.True(t, result.IsError)
				assert.Contains(t, text, tt.wantErr)
				return
			}
			require.False(t, result.IsError, text)
			out := decode[analytics.ScoreSeries](t, text)
			assert.Equal(t, tt.wantLabels, out.Labels)
			assert.Equal(t, tt.wantSeries, out.Series)
		})
	}

	t.Run("custom range cap counts calendar days", func(t *testing.T) {
		result, text := call(t, handleGrowthScore(f.sc), map[string]any{
			"range": "custom", "start_date": "2025-03-11T00:00:00Z", "end_date": "2026-03-11T00:00:00Z",
		})
		require.False(t, result.IsError, text)
		assert.Len(t, decode[analytics.ScoreSeries](t, text).Series, maxToolRange)

		result, text = call(t, handleGrowthScore(f.sc), map[string]any{
			"range": "custom", "start_date": "2025-03-10T00:00:00Z", "end_date": "2026-03-11T00:00:00Z",
		})
		assert.True(t, result.IsError)
		assert.Contains(t, text, "must not exceed 366 days")
	})

	for rangeArg, days := range map[string]int{"": 7, "7d": 7, "30d": 30} {
		_, text := call(t, handleGrowthScore(f.sc), map[string]any{"range": rangeArg})
		out := decode[analytics.ScoreSeries](t, text)
		assert.Len(t, out.Series, days, "range %q", rangeArg)
		assert.Equal(t, "Mar 10", out.Labels[len(out.Labels)-1])
	}
}

func TestAnalyticsTodayProgress(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	seedAnalytics(f)

	_, text := call(t, handleTodayProgress(f.sc), nil)
	assert.Equal(t, 50, decode[todayProgress](t, text).Percentage)
}

func TestAnalyticsSummary(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	seedAnalytics(f)

	result, text := call(t, handleSummary(f.sc), nil)
	require.False(t, result.IsError, text)

	out := decode[analytics.Summary](t, text)
	assert.Equal(t, "Good Afternoon", out.Greeting)
	assert.Len(t, out.CompletedPerDay.Series, analytics.DefaultWindowDays)
	assert.Len(t, out.GrowthScore.Series, analytics.SummaryGrowthDays)
	assert.Equal(t, 50, out.TodayPercentage)
	require.Len(t, out.Upcoming, 2)
	assert.Equal(t, "due today", out.Upcoming[0].Title)
	assert.Equal(t, "later", out.Upcoming[1].Title)
	assert.Equal(t, tasks.Stats{Total: 5, Completed: 2, Pending: 3}, out.Stats)
}

func TestAnalyticsReminders(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	seedAnalytics(f)

	_, text := call(t, handleReminders(f.sc), nil)
	out := decode[reminders](t, text)
	require.NotNil(t, out.Upcoming)
	assert.Equal(t, "You have tasks due soon: due today, later", out.Upcoming.Body)
	assert.Equal(t, "You still have 3 pending tasks. Don't forget to complete them!", out.EndOfDay.Body)
}

func TestSessionStatus(t *testing.T) {
	f := newFixture(t)

	_, text := call(t, handleSessionStatus(f.sc), nil)
	out := decode[sessionStatus](t, text)
	assert.Equal(t, "no_session", out.State)
	assert.Empty(t, out.Username)
	assert.NotEmpty(t, out.Hint)

	f.login(t)
	_, text = call(t, handleSessionStatus(f.sc), nil)
	out = decode[sessionStatus](t, text)
	assert.Equal(t, "valid", out.State)
	assert.Equal(t, "alice", out.Username)
	assert.Empty(t, out.Hint)
}
