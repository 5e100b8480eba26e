package tasks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/teemow/taskpulse/internal/apierror"
)

// StatusFilter selects tasks by status.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

// SortKey orders a task list.
type SortKey string

const (
	// SortByCreated orders newest first.
	SortByCreated SortKey = "created_at"
	// SortByPriority orders high, medium, low.
	SortByPriority SortKey = "priority"
	// SortByDueDate orders soonest first, tasks without due date last.
	SortByDueDate SortKey = "due_date"
)

// ParseStatusFilter parses a filter name; empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterCompleted:
		return f, nil
	default:
		return "", apierror.NewValidationError("status", fmt.Sprintf("unknown filter %q, must be all, pending or completed", s))
	}
}

// ParseSortKey parses a sort key; empty means created_at.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByCreated, nil
	case SortByCreated, SortByPriority, SortByDueDate:
		return k, nil
	default:
		return "", apierror.NewValidationError("sort", fmt.Sprintf("unknown sort key %q, must be created_at, priority or due_date", s))
	}
}

// Query filters, searches and sorts a task list.
type Query struct {
	Status StatusFilter
	Search string // case-insensitive substring of the title
	SortBy SortKey
}

// Apply returns a new slice; list is not modified. Sorting is stable.
func (q Query) Apply(list []Task) []Task {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]Task, 0, len(list))
	for _, task := range list {
		switch q.Status {
		case FilterPending:
			if !task.IsPending() {
				continue
			}
		case FilterCompleted:
			if !task.IsCompleted() {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(task.Title), search) {
			continue
		}
		out = append(out, task)
	}

	switch q.SortBy {
	case SortByPriority:
		slices.SortStableFunc(out, func(a, b Task) int {
			return a.Priority.rank() - b.Priority.rank()
		})
	case SortByDueDate:
		slices.SortStableFunc(out, compareDue)
	default:
		slices.SortStableFunc(out, func(a, b Task) int {
			return b.CreatedAt.Compare(a.CreatedAt.Time)
		})
	}
	return out
}

func compareDue(a, b Task) int {
	ad, aok := a.Due()
	bd, bok := b.Due()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	default:
		return ad.Compare(bd)
	}
}

// Stats counts a task list.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// ComputeStats counts tasks. Pending is everything not completed.
func ComputeStats(list []Task) Stats {
	stats := Stats{Total: len(list)}
	for _, task := range list {
		if task.IsCompleted() {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats
}
