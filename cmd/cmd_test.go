package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/taskpulse/internal/analytics"
	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/session"
	"github.com/teemow/taskpulse/internal/session/sessiontest"
	"github.com/teemow/taskpulse/internal/tools/batch"
)

// fakeAPI serves login, refresh and a small task collection.
type fakeAPI struct {
	t        *testing.T
	mu       sync.Mutex
	tasks    []map[string]any
	refresh  int
	rejectRT bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/token/":
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			http.Error(w, `{"detail": "No active account found with the given credentials"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access":  sessiontest.Token(f.t, creds["username"], time.Now().Add(time.Hour)),
			"refresh": "refresh-token",
		})

	case r.URL.Path == "/token/refresh/":
		f.refresh++
		if f.rejectRT {
			http.Error(w, `{"detail": "Token is invalid or expired"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access": sessiontest.Token(f.t, "alice", time.Now().Add(time.Hour)),
		})

	case r.URL.Path == "/tasks/" && r.Method == http.MethodGet:
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, `{"detail": "Authentication credentials were not provided."}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(f.tasks)

	case strings.HasPrefix(r.URL.Path, "/tasks/") && r.Method == http.MethodDelete:
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/")
		for i, task := range f.tasks {
			if fmt.Sprint(task["id"]) == id {
				f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		http.Error(w, `{"detail": "Not found."}`, http.StatusNotFound)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

type cliFixture struct {
	api        *fakeAPI
	url        string
	sessionDir string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	backend := &fakeAPI{t: t}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	return &cliFixture{api: backend, url: srv.URL, sessionDir: t.TempDir()}
}

// run executes the CLI with stdin and returns what it printed to stdout.
func (f *cliFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{
		"--api-url", f.url,
		"--session-store", "file",
		"--session-dir", f.sessionDir,
		"--log-level", "error",
	}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// storeSession writes a token pair the way login would.
func (f *cliFixture) storeSession(t *testing.T, access, refresh string) {
	t.Helper()
	store := session.NewFileStore(f.sessionDir)
	require.NoError(t, store.Set(context.Background(), session.KeyAccessToken, access))
	require.NoError(t, store.Set(context.Background(), session.KeyRefreshToken, refresh))
}

func TestLoginAndWhoami(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	assert.Empty(t, out)

	out, err = f.run(t, "alice\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	out, err = f.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)

	out, err = f.run(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)

	_, err = f.run(t, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "", "login", "-u", "alice", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Error: Invalid username or password", errorText(err))
}

func TestSignup_PasswordMismatch(t *testing.T) {
	f := newCLIFixture(t)

	_, err := f.run(t, "", "signup", "-u", "bob", "--password", "a", "--confirm-password", "b")
	require.Error(t, err)
	assert.Equal(t, "Error: Passwords do not match!", errorText(err))
}

func TestTasksList(t *testing.T) {
	f := newCLIFixture(t)
	f.api.tasks = []map[string]any{
		{"id": 1, "title": "Write report", "status": "pending", "priority": "high", "due_date": "2026-03-12", "created_at": "2026-03-01T09:00:00Z"},
		{"id": 2, "title": "Buy milk", "status": "completed", "priority": "low", "created_at": "2026-03-02T09:00:00Z", "updated_at": "2026-03-02T10:00:00Z"},
	}

	_, err := f.run(t, "", "tasks", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	f.storeSession(t, sessiontest.Token(t, "alice", time.Now().Add(time.Hour)), "refresh-token")

	out, err := f.run(t, "", "tasks", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "2026-03-12")
	assert.NotContains(t, out, "Buy milk")
	assert.Contains(t, out, "2 total, 1 completed, 1 pending")

	out, err = f.run(t, "", "tasks", "list", "--json", "--sort", "priority")
	require.NoError(t, err)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Write report", listed[0]["title"])
}

func TestTasksDelete_UnknownID(t *testing.T) {
	f := newCLIFixture(t)
	f.storeSession(t, sessiontest.Token(t, "alice", time.Now().Add(time.Hour)), "refresh-token")
	f.api.tasks = []map[string]any{
		{"id": 1, "title": "Write report", "status": "pending", "priority": "high", "created_at": "2026-03-01T09:00:00Z"},
	}

	out, err := f.run(t, "", "tasks", "delete", "1", "99")
	assert.EqualError(t, err, "1 of 2 tasks failed")
	assert.Equal(t, "1: deleted\n99: failed: no such task\n", out)
	assert.Empty(t, f.api.tasks)
}

func TestTasksList_RefreshesExpiredToken(t *testing.T) {
	f := newCLIFixture(t)
	f.storeSession(t, sessiontest.Token(t, "alice", time.Now().Add(-time.Minute)), "refresh-token")

	out, err := f.run(t, "", "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks")
	assert.Equal(t, 1, f.api.refreshes())
}

func TestTasksList_SessionExpired(t *testing.T) {
	f := newCLIFixture(t)
	f.api.rejectRT = true
	f.storeSession(t, sessiontest.Token(t, "alice", time.Now().Add(-time.Minute)), "stale")

	_, err := f.run(t, "", "tasks", "list")
	require.Error(t, err)
	assert.True(t, apierror.IsSessionExpired(err))
	assert.Equal(t, "Session expired. Please login again.", errorText(err))

	// The failed refresh cleared the stored tokens.
	_, err = f.run(t, "", "tasks", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestStats(t *testing.T) {
	f := newCLIFixture(t)
	f.storeSession(t, sessiontest.Token(t, "alice", time.Now().Add(time.Hour)), "refresh-token")

	today := time.Now().Format("2006-01-02")
	f.api.tasks = []map[string]any{
		{"id": 1, "title": "done", "status": "completed", "priority": "medium", "due_date": today, "created_at": "2026-01-01T09:00:00Z", "updated_at": time.Now().Format(time.RFC3339)},
		{"id": 2, "title": "open", "status": "pending", "priority": "medium", "due_date": today, "created_at": "2026-01-01T09:00:00Z"},
	}

	out, err := f.run(t, "", "stats", "--json", "--window", "3")
	require.NoError(t, err)

	var report analytics.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 50, report.TodayPercentage)
	assert.Equal(t, []int{0, 0, 1}, report.CompletedPerDay.Series)
	assert.Len(t, report.GrowthScore.Series, 7)
	require.Len(t, report.Upcoming, 1)
	assert.Equal(t, "open", report.Upcoming[0].Title)

	out, err = f.run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, ", alice!")
	assert.Contains(t, out, "Today's progress: 50%")

	_, err = f.run(t, "", "stats", "--from", "2026-03-01")
	assert.True(t, apierror.IsValidation(err))

	out, err = f.run(t, "", "stats", "--json", "--from", "2026-03-01", "--to", "2026-03-03")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"Mar 1", "Mar 2", "Mar 3"}, report.GrowthScore.Labels)

	_, err = f.run(t, "", "stats", "--from", "2026-03-01", "--to", "March 3")
	assert.True(t, apierror.IsValidation(err))

	_, err = f.run(t, "", "stats", "--window", "0")
	assert.True(t, apierror.IsValidation(err))
}

func TestRemind(t *testing.T) {
	f := newCLIFixture(t)
	f.storeSession(t, sessiontest.Token(t, "alice", time.Now().Add(time.Hour)), "refresh-token")

	out, err := f.run(t, "", "remind")
	require.NoError(t, err)
	assert.Equal(t, "All Done!\n  Great job! You have no pending tasks.\n", out)
}

func TestVersion(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("taskpulse version %s\n", version), out)
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "session expired",
			err:  fmt.Errorf("list: %w", &apierror.SessionExpiredError{Err: errors.New("401")}),
			want: "Session expired. Please login again.",
		},
		{
			name: "validation",
			err:  apierror.NewValidationError("title", "title is required"),
			want: "Error: title is required",
		},
		{
			name: "plain",
			err:  errors.New("boom"),
			want: "Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorText(tt.err))
		})
	}
}

func TestReportBatch(t *testing.T) {
	var out bytes.Buffer
	err := reportBatch(&out, []batch.Result{
		batch.NewSuccessResult("1", "deleted"),
		batch.NewErrorResult("2", errors.New("task 2 not found")),
	})
	assert.EqualError(t, err, "1 of 2 tasks failed")
	assert.Equal(t, "1: deleted\n2: failed: task 2 not found\n", out.String())

	out.Reset()
	require.NoError(t, reportBatch(&out, []batch.Result{batch.NewSuccessResult("1", "completed")}))
}
