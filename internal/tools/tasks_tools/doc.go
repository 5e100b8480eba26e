// Package tasks_tools provides MCP tools for the task API and its analytics.
//
// # Available Tools
//
// Tasks:
//   - tasks_list: List tasks with status filter, title search and sorting
//   - tasks_create: Create a task (write)
//   - tasks_update: Update fields of a task (write)
//   - tasks_complete: Mark one or more tasks completed (write)
//   - tasks_delete: Delete one or more tasks (write)
//   - tasks_complete_all: Complete every pending task (write)
//   - tasks_clear_completed: Delete every completed task (write)
//
// Analytics:
//   - analytics_completed_per_day: Completions per day over a trailing window
//   - analytics_growth_score: Cumulative growth score over a date range
//   - analytics_today_progress: Share of today's tasks that are completed
//   - analytics_summary: All dashboard series in one call
//   - analytics_reminders: Upcoming and end-of-day reminders
//
// Session:
//   - session_status: The signed-in user and session state
//
// Write tools are only registered when the server runs with --yolo.
//
// # Authentication
//
// Tools use the session stored by `taskpulse login`. When the session has
// expired and cannot be refreshed, tools fail with "Session expired. Please
// login again." and the user has to log in from the CLI.
package tasks_tools
