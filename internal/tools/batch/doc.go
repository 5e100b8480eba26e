// Package batch provides helpers for MCP tools that act on several tasks in
// one call.
//
// This package includes helpers for:
//   - Parsing id parameters that accept a single value or an array
//   - Running an operation per id with bounded concurrency
//   - Reporting partial failures in a consistent JSON structure
package batch
