package common

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/taskpulse/internal/api"
	"github.com/teemow/taskpulse/internal/apierror"
	"github.com/teemow/taskpulse/internal/instrumentation"
	"github.com/teemow/taskpulse/internal/server"
	"github.com/teemow/taskpulse/internal/session"
	"github.com/teemow/taskpulse/internal/tasks"
)

func newServerContext(t *testing.T, metrics *instrumentation.Metrics) *server.ServerContext {
	t.Helper()

	apiClient := api.NewClient("http://127.0.0.1:1/api", http.DefaultClient)
	sc, err := server.NewServerContext(context.Background(), server.Dependencies{
		Tasks:    tasks.NewClient(apiClient),
		Sessions: session.NewManager(session.NewMemoryStore(), session.NewHTTPRefresher(apiClient)),
		Metrics:  metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// recordingMetrics returns metrics backed by a manual reader.
func recordingMetrics(t *testing.T) (*instrumentation.Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := instrumentation.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return metrics, reader
}

// invocationStatuses collects the status attribute of every recorded tool invocation.
func invocationStatuses(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				out[status.AsString()] += dp.Value
			}
		}
	}
	return out
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestInstrumentedToolHandler(t *testing.T) {
	tests := []struct {
		name       string
		handler    ToolHandler
		wantErr    bool
		wantStatus string
		wantCode   codes.Code
	}{
		{
			name: "success",
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			},
			wantStatus: instrumentation.StatusSuccess,
			wantCode:   codes.Ok,
		},
		{
			name: "go error",
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return nil, errors.New("test error")
			},
			wantErr:    true,
			wantStatus: instrumentation.StatusError,
			wantCode:   codes.Error,
		},
		{
			name: "error result",
			handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("bad input"), nil
			},
			wantStatus: instrumentation.StatusError,
			wantCode:   codes.Unset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := recordSpans(t)
			metrics, reader := recordingMetrics(t)
			sc := newServerContext(t, metrics)

			wrapped := InstrumentedToolHandler("test_tool", sc, tt.handler)
			_, err := wrapped(context.Background(), mcp.CallToolRequest{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, map[string]int64{tt.wantStatus: 1}, invocationStatuses(t, reader))

			ended := spans.Ended()
			require.Len(t, ended, 1)
			assert.Equal(t, "tool.test_tool", ended[0].Name())
			assert.Equal(t, tt.wantCode, ended[0].Status().Code)
		})
	}
}

func TestInstrumentedToolHandler_ErrorResultAttribute(t *testing.T) {
	spans := recordSpans(t)
	sc := newServerContext(t, nil)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("bad input"), nil
	})
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.Bool(instrumentation.SpanAttrToolError, true))
}

func TestInstrumentedToolHandler_PassesRequest(t *testing.T) {
	sc := newServerContext(t, nil)

	var got map[string]any
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		got = req.GetArguments()
		return mcp.NewToolResultText("ok"), nil
	})

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"id": "7"}
	_, err := wrapped(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "7"}, got)
}

func TestErrorResult(t *testing.T) {
	result := ErrorResult("delete task", &apierror.SessionExpiredError{})
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Failed to delete task: Session expired. Please login again.", text.Text)
}

func TestJSONResult(t *testing.T) {
	result, err := JSONResult(map[string]int{"count": 2})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"count": 2}`, text.Text)
}
