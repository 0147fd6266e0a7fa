package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Registry)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelDisabledSignals(t *testing.T) {
	cfg := &OTelConfig{ServiceName: "rainflow", ServiceVersion: "test"}
	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	// no-op instruments remain usable
	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
	metrics, err := CreateAppMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordAnalysis(ctx, "inline", OutcomeSuccess, 10, 4, time.Millisecond)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *OTelConfig
		wantErr bool
	}{
		{"stdout exporter", &OTelConfig{ServiceName: "rainflow", EnableTracing: true, TraceExporter: config.TraceExporterStdout, SampleRatio: 1}, false},
		{"none exporter", &OTelConfig{ServiceName: "rainflow", EnableTracing: true, TraceExporter: config.TraceExporterNone, SampleRatio: 1}, false},
		{"unknown exporter", &OTelConfig{ServiceName: "rainflow", EnableTracing: true, TraceExporter: "jaeger"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestNewOTelConfig(t *testing.T) {
	cfg := NewOTelConfig(config.TelemetryConfig{
		ServiceName:    "svc",
		TracingEnabled: true,
		MetricsEnabled: false,
		TraceExporter:  config.TraceExporterStdout,
	}, "1.2.3")

	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.True(t, cfg.EnableTracing)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, config.TraceExporterStdout, cfg.TraceExporter)
	assert.Equal(t, 1.0, cfg.SampleRatio)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestAppMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateAppMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordHTTPRequest(ctx, http.MethodPost, "/api/v1/analyses", http.StatusOK, 5*time.Millisecond)
	metrics.TrackActiveRequest(ctx, 1)
	metrics.RecordAnalysis(ctx, "inline", OutcomeSuccess, 9, 9, 2*time.Millisecond)
	metrics.RecordAnalysis(ctx, "upload", OutcomeFailure, 0, 0, time.Millisecond)
	metrics.TrackWebSocket(ctx, 1)

	body := scrape(t, providers.PrometheusHTTP)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "http_request_duration_seconds")
	assert.Contains(t, body, "rainflow_analyses_total")
	assert.Contains(t, body, `outcome="failure"`)
	assert.Contains(t, body, "rainflow_analysis_samples")
	assert.Contains(t, body, "websocket_connections")
}

func TestNilAppMetrics(t *testing.T) {
	var metrics *AppMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.RecordHTTPRequest(ctx, http.MethodGet, "/", http.StatusOK, time.Second)
		metrics.TrackActiveRequest(ctx, 1)
		metrics.RecordAnalysis(ctx, "inline", OutcomeSuccess, 1, 1, time.Second)
		metrics.TrackWebSocket(ctx, -1)
	})
}

func TestRuntimeMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	rm, err := NewRuntimeMetrics(providers.Meter, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	body := scrape(t, providers.PrometheusHTTP)
	assert.Contains(t, body, "system_goroutines")
	assert.Contains(t, body, "system_process_uptime_seconds")

	assert.NoError(t, rm.Stop())
	var nilMetrics *RuntimeMetrics
	assert.NoError(t, nilMetrics.Stop())

	stats := ReadRuntimeStats(time.Now().Add(-time.Second))
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.NumCPU)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, 1.0)
}

func TestSpanOperations(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "analysis")
	AddSpanEvent(ctx, "loaded", map[string]interface{}{"samples": 9, "source": "inline", "ok": true, "other": []int{1}})
	SetSpanAttributes(ctx, map[string]interface{}{"extrema": int64(9), "max_range": 9.0})
	RecordError(ctx, errors.New("boom"))
	RecordError(ctx, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "Error", got.Status().Code.String())
	assert.Equal(t, "boom", got.Status().Description)
	assert.Len(t, got.Attributes(), 2)

	names := make([]string, 0, len(got.Events()))
	for _, e := range got.Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"loaded", "exception"}, names)

	// no span in context is a no-op
	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "x", nil)
		SetSpanAttributes(context.Background(), nil)
		RecordError(context.Background(), errors.New("x"))
	})
}
