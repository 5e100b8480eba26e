package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/taskpulse/internal/apierror"
)

type item struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func TestClient_Do_Success(t *testing.T) {
	var gotRequestID, gotContentType string
	var gotBody item

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tasks/", r.URL.Path)
		gotRequestID = r.Header.Get(HeaderRequestID)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 7, "title": "write tests"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/api/", srv.Client())

	var out item
	err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/tasks/",
		Body:   item{Title: "write tests"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, item{ID: 7, Title: "write tests"}, out)
	assert.Equal(t, "write tests", gotBody.Title)
	assert.Equal(t, "application/json", gotContentType)
	_, parseErr := uuid.Parse(gotRequestID)
	assert.NoError(t, parseErr, "request id should be a uuid")
}

func TestClient_Do_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Content-Type"), "no body, no content type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var out item
	err := NewClient(srv.URL, srv.Client()).Do(context.Background(), Request{
		Method: http.MethodDelete,
		Path:   "/tasks/3/",
	}, &out)
	require.NoError(t, err)
	assert.Zero(t, out)
}

func TestClient_Do_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "404 becomes NotFoundError",
			status: http.StatusNotFound,
			body:   `{"detail": "Not found."}`,
			check: func(t *testing.T, err error) {
				var nf *apierror.NotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, "task", nf.Resource)
				assert.Equal(t, "3", nf.ID)
				assert.Equal(t, "task 3 not found", err.Error())
			},
		},
		{
			name:   "400 becomes ValidationError",
			status: http.StatusBadRequest,
			body:   `{"title": ["This field may not be blank."]}`,
			check: func(t *testing.T, err error) {
				var ve *apierror.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "title", ve.Field)
				assert.Equal(t, "This field may not be blank.", ve.Message)
			},
		},
		{
			name:   "500 becomes StatusError",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var se *apierror.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
				assert.Equal(t, "boom", se.Body)
			},
		},
		{
			name:   "401 becomes StatusError",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var se *apierror.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, srv.Client()).Do(context.Background(), Request{
				Method:   http.MethodPatch,
				Path:     "/tasks/3/",
				Route:    "/tasks/{id}/",
				Resource: "task",
				ID:       "3",
			}, nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, &http.Client{Timeout: time.Second}).Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/tasks/",
	}, nil)

	var ne *apierror.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "GET /tasks/", ne.Op)
}

type expiringTransport struct{}

func (expiringTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, &apierror.SessionExpiredError{Err: errors.New("refresh rejected")}
}

func TestClient_Do_SessionExpiredPassesThrough(t *testing.T) {
	client := NewClient("http://example.invalid", &http.Client{Transport: expiringTransport{}})

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/"}, nil)

	assert.True(t, apierror.IsSessionExpired(err))
	var ne *apierror.NetworkError
	assert.False(t, errors.As(err, &ne), "session expiry must not be reported as a network error")
}

func TestClient_Do_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient(srv.URL, srv.Client()).Do(ctx, Request{Method: http.MethodGet, Path: "/tasks/"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Do_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out item
	err := NewClient(srv.URL, srv.Client()).Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks/1/"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}

func TestParseValidationError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantField   string
		wantMessage string
	}{
		{name: "empty body", body: "", wantMessage: "invalid request"},
		{name: "not json", body: "<html>", wantMessage: "invalid request"},
		{name: "detail", body: `{"detail": "Bad input"}`, wantMessage: "Bad input"},
		{
			name:        "first field in key order",
			body:        `{"username": ["A user with that username already exists."], "email": ["Enter a valid email."]}`,
			wantField:   "email",
			wantMessage: "Enter a valid email.",
		},
		{name: "string field", body: `{"password": "too short"}`, wantField: "password", wantMessage: "too short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve := ParseValidationError([]byte(tt.body))
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.wantMessage, ve.Message)
		})
	}
}
