package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(metricsExporter, tracingExporter string) Config {
	return Config{
		ServiceName:     "taskpulse-test",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: metricsExporter,
		TracingExporter: tracingExporter,
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		wantErr        string
		wantPrometheus bool
	}{
		{
			name:           "prometheus metrics without tracing",
			config:         testConfig(ExporterPrometheus, ExporterNone),
			wantPrometheus: true,
		},
		{
			name:           "empty exporters default to prometheus",
			config:         testConfig("", ""),
			wantPrometheus: true,
		},
		{
			name:   "stdout metrics and traces",
			config: testConfig(ExporterStdout, ExporterStdout),
		},
		{
			name:    "unknown metrics exporter",
			config:  testConfig("statsd", ExporterNone),
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			config:  testConfig(ExporterPrometheus, "zipkin"),
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing needs an endpoint",
			config:  testConfig(ExporterPrometheus, ExporterOTLP),
			wantErr: "OTLP endpoint is required",
		},
		{
			name: "sampling rate out of range",
			config: func() Config {
				c := testConfig(ExporterPrometheus, ExporterNone)
				c.TraceSamplingRate = 1.5
				return c
			}(),
			wantErr: "trace sampling rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer func() { assert.NoError(t, provider.Shutdown(ctx)) }()

			assert.True(t, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("taskpulse-test"))
			assert.Equal(t, tt.wantPrometheus, provider.ServesPrometheus())
		})
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, MetricsExporter: ExporterPrometheus})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.ServesPrometheus())
	assert.NotNil(t, provider.Tracer("taskpulse-test"), "no-op tracer")

	// The recorder of a disabled provider accepts calls and drops them.
	metrics := provider.Metrics()
	require.NotNil(t, metrics)
	metrics.RecordTokenRefresh(context.Background(), RefreshResultFailure)
	metrics.RecordAuthAttempt(context.Background(), AuthOperationLogin, StatusError)

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_ExportsSessionAndAPIMetrics(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	m := provider.Metrics()
	m.RecordTokenRefresh(ctx, RefreshResultSuccess)
	m.RecordTokenRefresh(ctx, RefreshResultNoSession)
	m.RecordAuthAttempt(ctx, AuthOperationSignup, StatusSuccess)
	m.RecordAPIRequest(ctx, "GET", "/tasks/", 200, 30*time.Millisecond)
	m.RecordToolInvocation(ctx, "tasks_list", StatusSuccess, 10*time.Millisecond)

	// Earlier providers in this package share the default registry; only
	// the families of this one matter here.
	families, _ := prometheus.DefaultGatherer.Gather()
	got := make(map[string]float64)
	for _, mf := range families {
		total := 0.0
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				total += float64(h.GetSampleCount())
			}
		}
		got[mf.GetName()] = total
	}

	for name, want := range map[string]float64{
		"token_refresh_total":          2,
		"auth_attempts_total":          1,
		"api_requests_total":           1,
		"api_request_duration_seconds": 1,
		"mcp_tool_invocations_total":   1,
		"mcp_tool_duration_seconds":    1,
	} {
		assert.Contains(t, got, name)
		assert.Equal(t, want, got[name], name)
	}
}
