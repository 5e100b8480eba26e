// Package instrumentation provides OpenTelemetry instrumentation for taskpulse.
//
// It covers:
//   - OpenTelemetry metrics for task API calls, logins and token refreshes
//   - Distributed tracing for API calls and MCP tool invocations
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Task API Metrics:
//   - api_requests_total: Counter of task API requests by method, endpoint, and status
//   - api_request_duration_seconds: Histogram of task API request durations
//
// Session Metrics:
//   - auth_attempts_total: Counter of login/signup attempts by operation and result
//   - token_refresh_total: Counter of token refresh attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: taskpulse)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordAPIRequest(ctx, "GET", "/tasks/", 200, time.Since(start))
//	recorder.RecordToolInvocation(ctx, "tasks_list", "success", time.Since(start))
package instrumentation
