// Package analytics turns a task list into chart-ready series.
//
// All day arithmetic happens in one location (the local zone unless
// WithLocation says otherwise): a timestamp belongs to the calendar day it
// falls on in that location. Completion is observed through updated_at, so
// a completed task without updated_at never shows up in a series. Missed
// tasks are tasks still pending whose due date falls on the day.
//
// The engine returns plain labels and numbers. Rendering is left to the
// caller.
package analytics
