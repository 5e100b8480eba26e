package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/taskpulse/internal/apierror"
)

func TestTask_UnmarshalJSON(t *testing.T) {
	body := `{
		"id": 12,
		"title": "Write report",
		"description": null,
		"status": "completed",
		"priority": "high",
		"due_date": "2026-03-02",
		"created_at": "2026-02-20T09:30:00Z",
		"updated_at": "2026-03-01T18:15:42.123456Z"
	}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(body), &task))

	assert.Equal(t, ID("12"), task.ID)
	assert.Equal(t, "Write report", task.Title)
	assert.Empty(t, task.Description)
	assert.True(t, task.IsCompleted())
	assert.Equal(t, PriorityHigh, task.Priority)

	due, ok := task.Due()
	require.True(t, ok)
	assert.True(t, task.DueDate.DateOnly)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local), due)

	modified, ok := task.Modified()
	require.True(t, ok)
	assert.Equal(t, 2026, modified.Year())
	assert.Equal(t, 123456000, modified.Nanosecond())
}

func TestTask_OptionalFieldsMissing(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id": "abc", "title": "x", "status": "pending", "due_date": null, "created_at": "2026-01-01T00:00:00Z"}`), &task))

	assert.Equal(t, ID("abc"), task.ID)
	_, ok := task.Due()
	assert.False(t, ok)
	_, ok = task.Modified()
	assert.False(t, ok)
	assert.True(t, task.IsPending())
}

func TestID_JSON(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`7`), &id))
	assert.Equal(t, ID("7"), id)

	require.NoError(t, json.Unmarshal([]byte(`"uuid-1"`), &id))
	assert.Equal(t, ID("uuid-1"), id)

	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))

	data, err := json.Marshal(ID("7"))
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(data))

	data, err = json.Marshal(ID("uuid-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `"uuid-1"`, string(data))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in       string
		want     time.Time
		dateOnly bool
		wantErr  bool
	}{
		{in: "2026-03-02", want: time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local), dateOnly: true},
		{in: "2026-03-02T10:00:00Z", want: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
		{in: "2026-03-02T10:00:00+02:00", want: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		{in: "2026-03-02T10:00:00", want: time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, ts.Equal(tt.want), "got %s want %s", ts.Time, tt.want)
			assert.Equal(t, tt.dateOnly, ts.DateOnly)
		})
	}
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	date, err := ParseTimestamp("2026-03-02")
	require.NoError(t, err)
	data, err := json.Marshal(date)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-03-02"`, string(data))

	data, err = json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(NewTimestamp(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-03-02T10:00:00Z"`, string(data))
}

func TestTaskInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		in        TaskInput
		wantField string
	}{
		{name: "empty title", in: TaskInput{Title: "   "}, wantField: "title"},
		{name: "bad status", in: TaskInput{Title: "a", Status: "done"}, wantField: "status"},
		{name: "bad priority", in: TaskInput{Title: "a", Priority: "urgent"}, wantField: "priority"},
		{name: "ok", in: TaskInput{Title: " a "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "a", tt.in.Title)
				assert.Equal(t, StatusPending, tt.in.Status)
				assert.Equal(t, PriorityMedium, tt.in.Priority)
				return
			}
			var ve *apierror.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestPatch(t *testing.T) {
	title := "New title"
	status := StatusCompleted

	data, err := json.Marshal(Patch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "New title", "status": "completed"}`, string(data))

	data, err = json.Marshal(Patch{ClearDueDate: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due_date": null}`, string(data))

	assert.True(t, apierror.IsValidation(Patch{}.Validate()))

	blank := " "
	assert.True(t, apierror.IsValidation(Patch{Title: &blank}.Validate()))

	bad := Priority("urgent")
	assert.True(t, apierror.IsValidation(Patch{Priority: &bad}.Validate()))

	due, _ := ParseTimestamp("2026-03-02")
	assert.True(t, apierror.IsValidation(Patch{DueDate: &due, ClearDueDate: true}.Validate()))
}
