// Package resources exposes read-only MCP resources about the signed-in
// user and their dashboard.
//
// Resources:
//   - user://profile: the signed-in user and the session state
//   - tasks://dashboard: greeting, completed per day, growth score, today's
//     progress, upcoming tasks and counts
package resources
