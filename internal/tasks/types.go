package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/taskpulse/internal/apierror"
)

// ID is an opaque task identifier. The API may send it as a JSON number or
// string; it is always handled as a string.
type ID string

// UnmarshalJSON accepts numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers so the API sees what it sent.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Status of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// rank orders priorities high first. Unknown priorities sort last.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Timestamp layouts accepted from the API, most specific first. Layouts
// without a zone are read in the local zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// DateLayout is the bare calendar date form used by date pickers.
const DateLayout = "2006-01-02"

// Timestamp is a point in time that accepts RFC 3339 date-times and bare
// YYYY-MM-DD dates. Bare dates are local midnight and are written back in
// the same form.
type Timestamp struct {
	time.Time
	DateOnly bool
}

// ParseTimestamp parses any accepted form.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return Timestamp{Time: t, DateOnly: true}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q: want RFC 3339 or YYYY-MM-DD", s)
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*ts = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	if ts.DateOnly {
		return json.Marshal(ts.Format(DateLayout))
	}
	return json.Marshal(ts.Format(time.RFC3339))
}

// Task as returned by the API.
type Task struct {
	ID          ID         `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *Timestamp `json:"due_date,omitempty"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty"`
}

// Due returns the due date, if any.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == nil || t.DueDate.IsZero() {
		return time.Time{}, false
	}
	return t.DueDate.Time, true
}

// Modified returns the last-modified timestamp, if any.
func (t Task) Modified() (time.Time, bool) {
	if t.UpdatedAt == nil || t.UpdatedAt.IsZero() {
		return time.Time{}, false
	}
	return t.UpdatedAt.Time, true
}

// IsCompleted reports whether the task is completed.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsPending reports whether the task is pending.
func (t Task) IsPending() bool {
	return t.Status == StatusPending
}

// TaskInput is the body for creating a task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *Timestamp `json:"due_date"`
}

// Validate checks the input and fills defaults (pending, medium).
func (in *TaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apierror.NewValidationError("title", "title is required")
	}
	if in.Status == "" {
		in.Status = StatusPending
	} else if !in.Status.Valid() {
		return apierror.NewValidationError("status", fmt.Sprintf("unknown status %q, must be pending or completed", in.Status))
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	} else if !in.Priority.Valid() {
		return apierror.NewValidationError("priority", fmt.Sprintf("unknown priority %q, must be low, medium or high", in.Priority))
	}
	return nil
}

// Patch is a partial update. Nil fields are left unchanged; ClearDueDate
// removes the due date.
type Patch struct {
	Title        *string
	Description  *string
	Status       *Status
	Priority     *Priority
	DueDate      *Timestamp
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate
}

// Validate checks the patch.
func (p Patch) Validate() error {
	if p.Empty() {
		return apierror.NewValidationError("", "nothing to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apierror.NewValidationError("title", "title must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return apierror.NewValidationError("status", fmt.Sprintf("unknown status %q, must be pending or completed", *p.Status))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return apierror.NewValidationError("priority", fmt.Sprintf("unknown priority %q, must be low, medium or high", *p.Priority))
	}
	if p.ClearDueDate && p.DueDate != nil {
		return apierror.NewValidationError("due_date", "cannot set and clear the due date at once")
	}
	return nil
}

// MarshalJSON writes only the fields being changed.
func (p Patch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any)
	if p.Title != nil {
		body["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.DueDate != nil {
		body["due_date"] = p.DueDate
	}
	if p.ClearDueDate {
		body["due_date"] = nil
	}
	return json.Marshal(body)
}
