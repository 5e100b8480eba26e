// Package server provides the MCP server context and the HTTP plumbing
// around it for taskpulse.
//
// # Key Components
//
// ServerContext carries the task, auth and session services plus the
// analytics engine that MCP tool handlers call into. All of them share one
// session Manager, so a token refreshed by one tool is seen by the next.
//
// HTTPServer exposes the MCP server over the streamable HTTP transport at
// /mcp, next to the /healthz and /readyz probes served by HealthChecker.
// Readiness also reflects the session: a server without a usable session
// cannot reach the task API and reports itself as not ready.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
