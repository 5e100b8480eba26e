// Package cmd implements the command-line interface for taskpulse.
//
// This package provides the following commands:
//   - login, signup, logout, whoami: Manage the stored session
//   - tasks: List, add, update, complete and delete tasks
//   - stats: Show completed tasks per day, the growth score and today's progress
//   - remind: Show upcoming and end-of-day reminders
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// Every command that talks to the task API exits non-zero with
// "Session expired. Please login again." when the session cannot be refreshed.
package cmd
