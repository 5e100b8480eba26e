package analytics

import (
	"fmt"
	"time"

	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/tasks"
)

// MaxRangeDays bounds a DateRange so a typo in a year cannot allocate
// millions of buckets.
const MaxRangeDays = 3660

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DateBucket aggregates one calendar day.
type DateBucket struct {
	Date      time.Time `json:"date"`
	Label     string    `json:"label"`
	Completed int       `json:"completed"`
	DueMissed int       `json:"due_missed"`
}

// dayKey is a calendar date. Day arithmetic happens on the date itself so
// zones whose midnight can be skipped by a DST change still yield one key
// per day.
type dayKey struct {
	year  int
	month time.Month
	day   int
}

// keyOf returns the calendar day of t in loc. An instant that is the
// normalized form of a nonexistent local midnight (Santiago, Asunción, Cairo
// and other zones that spring forward at 00:00) belongs to the day that
// midnight starts, not to the evening before.
func keyOf(t time.Time, loc *time.Location) dayKey {
	y, m, d := t.In(loc).Date()
	if time.Date(y, m, d+1, 0, 0, 0, 0, loc).Equal(t) {
		y, m, d = time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC).Date()
	}
	return dayKey{year: y, month: m, day: d}
}

func (k dayKey) utc() time.Time {
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, time.UTC)
}

func (k dayKey) addDays(n int) dayKey {
	y, m, d := k.utc().AddDate(0, 0, n).Date()
	return dayKey{year: y, month: m, day: d}
}

func (k dayKey) compare(o dayKey) int {
	return k.utc().Compare(o.utc())
}

// midnight is the first instant of k in loc, as time.Date places it.
func (k dayKey) midnight(loc *time.Location) time.Time {
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc)
}

func (k dayKey) format(layout string) string {
	return k.utc().Format(layout)
}

// days lists each calendar day of r in loc, oldest first.
func (r DateRange) days(loc *time.Location) ([]dayKey, error) {
	start := keyOf(r.Start, loc)
	end := keyOf(r.End, loc)
	if start.compare(end) > 0 {
		return nil, apierror.NewValidationError("start",
			fmt.Sprintf("start date %s is after end date %s", start.format(time.DateOnly), end.format(time.DateOnly)))
	}

	var out []dayKey
	for day := start; day.compare(end) <= 0; day = day.addDays(1) {
		if len(out) == MaxRangeDays {
			return nil, apierror.NewValidationError("end",
				fmt.Sprintf("date range exceeds %d days", MaxRangeDays))
		}
		out = append(out, day)
	}
	return out, nil
}

// SpanDays returns the number of calendar days in r, both ends included,
// or 0 when Start is after End.
func (r DateRange) SpanDays(loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	start := keyOf(r.Start, loc)
	end := keyOf(r.End, loc)
	if start.compare(end) > 0 {
		return 0
	}
	return int(end.utc().Sub(start.utc())/(24*time.Hour)) + 1
}

// Bucketize counts, for every day of r, the tasks completed that day and the
// pending tasks due that day. One bucket per day, oldest first. A nil loc
// means time.Local.
func Bucketize(list []tasks.Task, r DateRange, loc *time.Location) ([]DateBucket, error) {
	if loc == nil {
		loc = time.Local
	}

	days, err := r.days(loc)
	if err != nil {
		return nil, err
	}

	buckets := make([]DateBucket, len(days))
	index := make(map[dayKey]int, len(days))
	for i, day := range days {
		buckets[i].Date = day.midnight(loc)
		buckets[i].Label = day.format(LabelLayout)
		index[day] = i
	}

	for _, task := range list {
		if task.IsCompleted() {
			if modified, ok := task.Modified(); ok {
				if i, ok := index[keyOf(modified, loc)]; ok {
					buckets[i].Completed++
				}
			}
		}
		if task.IsPending() {
			if due, ok := task.Due(); ok {
				if i, ok := index[keyOf(due, loc)]; ok {
					buckets[i].DueMissed++
				}
			}
		}
	}

	return buckets, nil
}
