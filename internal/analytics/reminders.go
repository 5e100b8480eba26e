package analytics

import (
	"fmt"
	"strings"

	"github.com/teemow/taskpulse/internal/tasks"
)

// Reminder is a notification title and body.
type Reminder struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpcomingReminder lists upcoming task titles, or returns nil when nothing
// is upcoming.
func (e *Engine) UpcomingReminder(list []tasks.Task) *Reminder {
	upcoming := e.Upcoming(list)
	if len(upcoming) == 0 {
		return nil
	}

	titles := make([]string, len(upcoming))
	for i, task := range upcoming {
		titles[i] = task.Title
	}
	return &Reminder{
		Title: "Upcoming Tasks!",
		Body:  "You have tasks due soon: " + strings.Join(titles, ", "),
	}
}

// EndOfDayReminder nags about pending tasks or congratulates when there
// are none.
func EndOfDayReminder(stats tasks.Stats) Reminder {
	if stats.Pending > 0 {
		return Reminder{
			Title: "End of Day Reminder",
			Body:  fmt.Sprintf("You still have %d pending tasks. Don't forget to complete them!", stats.Pending),
		}
	}
	return Reminder{
		Title: "All Done!",
		Body:  "Great job! You have no pending tasks.",
	}
}
