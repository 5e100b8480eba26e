// Package common provides shared utilities for MCP tool implementations:
// the instrumented handler wrapper every tool is registered through, and
// helpers that turn values and errors into tool results.
package common
