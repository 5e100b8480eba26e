package analytics

import (
	"slices"
	"time"

	"github.com/teemow/taskpulse/internal/tasks"
)

// Defaults
const (
	DefaultWindowDays = 7
	SummaryGrowthDays = 30
	LabelLayout       = "Jan 2"
	missedPenalty     = 0.5
)

// CountSeries is a labelled integer series.
type CountSeries struct {
	Labels []string `json:"labels"`
	Series []int    `json:"series"`
}

// ScoreSeries is a labelled float series.
type ScoreSeries struct {
	Labels []string  `json:"labels"`
	Series []float64 `json:"series"`
}

// Engine computes analytics relative to its clock and location.
type Engine struct {
	now func() time.Time
	loc *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine creates an Engine using time.Now and time.Local by default.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the zone that defines calendar days.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// TrailingRange returns the last n days including today. n <= 0 means
// DefaultWindowDays.
func (e *Engine) TrailingRange(n int) DateRange {
	if n <= 0 {
		n = DefaultWindowDays
	}
	today := keyOf(e.now(), e.loc)
	return DateRange{Start: today.addDays(-(n - 1)).midnight(e.loc), End: today.midnight(e.loc)}
}

func labels(buckets []DateBucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Label
	}
	return out
}

// CompletedPerDay counts completions per day over the trailing windowDays
// days, today included. The result always has windowDays points (7 when
// windowDays <= 0).
func (e *Engine) CompletedPerDay(list []tasks.Task, windowDays int) CountSeries {
	if windowDays > MaxRangeDays {
		windowDays = MaxRangeDays
	}
	// A trailing range is never inverted or oversized.
	buckets, _ := Bucketize(list, e.TrailingRange(windowDays), e.loc)

	series := make([]int, len(buckets))
	for i, b := range buckets {
		series[i] = b.Completed
	}
	return CountSeries{Labels: labels(buckets), Series: series}
}

// GrowthScoreOverRange accumulates completed - 0.5*missed per day over the
// inclusive range, clamping the running total at zero after each day.
func (e *Engine) GrowthScoreOverRange(list []tasks.Task, start, end time.Time) (ScoreSeries, error) {
	buckets, err := Bucketize(list, DateRange{Start: start, End: end}, e.loc)
	if err != nil {
		return ScoreSeries{}, err
	}

	series := make([]float64, len(buckets))
	score := 0.0
	for i, b := range buckets {
		score += float64(b.Completed) - missedPenalty*float64(b.DueMissed)
		score = max(0, score)
		series[i] = score
	}
	return ScoreSeries{Labels: labels(buckets), Series: series}, nil
}

// TodayCompletionPercentage is the share of tasks due today that are
// completed, rounded half up. 0 when nothing is due today.
func (e *Engine) TodayCompletionPercentage(list []tasks.Task) int {
	today := keyOf(e.now(), e.loc)

	due, completed := 0, 0
	for _, task := range list {
		d, ok := task.Due()
		if !ok || keyOf(d, e.loc) != today {
			continue
		}
		due++
		if task.IsCompleted() {
			completed++
		}
	}
	if due == 0 {
		return 0
	}
	return (200*completed + due) / (2 * due)
}

// Upcoming returns pending tasks due today or later, soonest first.
func (e *Engine) Upcoming(list []tasks.Task) []tasks.Task {
	today := keyOf(e.now(), e.loc)

	out := make([]tasks.Task, 0)
	for _, task := range list {
		if !task.IsPending() {
			continue
		}
		if d, ok := task.Due(); ok && keyOf(d, e.loc).compare(today) >= 0 {
			out = append(out, task)
		}
	}
	slices.SortStableFunc(out, func(a, b tasks.Task) int {
		ad, _ := a.Due()
		bd, _ := b.Due()
		return ad.Compare(bd)
	})
	return out
}

// Greeting returns "Good Morning", "Good Afternoon" or "Good Evening" for
// the current hour.
func (e *Engine) Greeting() string {
	switch hour := e.now().In(e.loc).Hour(); {
	case hour < 12:
		return "Good Morning"
	case hour < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

// Summary bundles every dashboard payload.
type Summary struct {
	Greeting        string       `json:"greeting"`
	CompletedPerDay CountSeries  `json:"completed_per_day"`
	GrowthScore     ScoreSeries  `json:"growth_score"`
	TodayPercentage int          `json:"today_percentage"`
	Upcoming        []tasks.Task `json:"upcoming"`
	Stats           tasks.Stats  `json:"stats"`
}

// Summary computes completed-per-day over windowDays, the growth score over
// the trailing SummaryGrowthDays, today's percentage, upcoming tasks and
// counts.
func (e *Engine) Summary(list []tasks.Task, windowDays int) Summary {
	// A trailing range is always valid.
	s, _ := e.Report(list, windowDays, e.TrailingRange(SummaryGrowthDays))
	return s
}

// Report is Summary with the growth score computed over growth instead of
// the trailing SummaryGrowthDays.
func (e *Engine) Report(list []tasks.Task, windowDays int, growth DateRange) (Summary, error) {
	score, err := e.GrowthScoreOverRange(list, growth.Start, growth.End)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		Greeting:        e.Greeting(),
		CompletedPerDay: e.CompletedPerDay(list, windowDays),
		GrowthScore:     score,
		TodayPercentage: e.TodayCompletionPercentage(list),
		Upcoming:        e.Upcoming(list),
		Stats:           tasks.ComputeStats(list),
	}, nil
}
