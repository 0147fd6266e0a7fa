package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	apperrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
	"github.com/djangbahevans/RainflowCycleCounting/internal/loader"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
	"github.com/djangbahevans/RainflowCycleCounting/internal/shared/testutil"
	"github.com/djangbahevans/RainflowCycleCounting/internal/websocket"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event websocket.Event) {
	m.Called(ctx, event)
}

func eventOfType(eventType string) any {
	return mock.MatchedBy(func(e websocket.Event) bool { return e.Type == eventType })
}

type mockSpreadsheet struct {
	mock.Mock
}

func (m *mockSpreadsheet) Load(ctx context.Context, id string, opts loader.Options) ([]any, error) {
	args := m.Called(ctx, id, opts)
	values, _ := args.Get(0).([]any)
	return values, args.Error(1)
}

func astmValues() []any {
	values := make([]any, len(testutil.ASTMSignal))
	for i, v := range testutil.ASTMSignal {
		values[i] = v
	}
	return values
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{MaxSamples: 100, DefaultBinWidth: 2}
}

func TestAnalysisService_Analyze(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(websocket.TypeAnalysisStarted)).Once()
	pub.On("Publish", mock.Anything, eventOfType(websocket.TypeAnalysisCompleted)).Once()

	svc := NewAnalysisService(testConfig(), logger, WithPublisher(pub))
	resp, err := svc.Analyze(context.Background(), AnalysisInput{Name: "astm", Values: astmValues()})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "astm", resp.Name)
	assert.Equal(t, domain.SourceJSON, resp.Source)
	assert.Equal(t, testutil.ASTMSignal, resp.Extrema.Values)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, resp.Extrema.SignalIndex)
	assert.Len(t, resp.Peaks, 4)
	assert.Len(t, resp.Valleys, 4)
	assert.Equal(t, 8, resp.Summary.HalfCycles)
	assert.Equal(t, 9.0, resp.Summary.MaxRange)

	first := resp.Valleys[0]
	assert.Equal(t, "valley", first.Kind)
	assert.Equal(t, -2.0, first.OriginValue)
	assert.Equal(t, []domain.LevelPointView{{Index: 0, Level: -2}, {Index: 1, Level: 1}, {Index: 2, Level: 1}}, first.History)

	halfCycles := map[float64]int{}
	for _, b := range resp.Spectrum {
		halfCycles[b.Low] = b.HalfCycles
	}
	assert.Equal(t, map[float64]int{3: 1, 4: 3, 6: 1, 8: 2, 9: 1}, halfCycles)

	// width 2: [0,2) [2,4) [4,6) [6,8) [8,10)
	require.Len(t, resp.Histogram, 5)
	assert.Equal(t, 1, resp.Histogram[1].HalfCycles)
	assert.Equal(t, 3, resp.Histogram[2].HalfCycles)
	assert.Equal(t, 1, resp.Histogram[3].HalfCycles)
	assert.Equal(t, 3, resp.Histogram[4].HalfCycles)

	pub.AssertExpectations(t)
	assert.True(t, logs.ContainsMessage("analysis completed"))
}

func TestAnalysisService_MixedValues(t *testing.T) {
	svc := NewAnalysisService(testConfig(), nil)
	resp, err := svc.Analyze(context.Background(), AnalysisInput{
		Values: []any{"0", nil, 2.0, "abc", 1, " 4 "},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Summary.Samples)
	assert.Equal(t, []float64{0, 2, 1, 4}, resp.Extrema.Values)
}

func TestAnalysisService_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input AnalysisInput
		cause error
	}{
		{"empty", AnalysisInput{}, ErrNoValues},
		{"too many", AnalysisInput{Values: make([]any, 101)}, ErrTooManySamples},
		{"negative width", AnalysisInput{Values: astmValues(), BinWidth: -1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			svc := NewAnalysisService(testConfig(), nil, WithPublisher(pub))

			_, err := svc.Run(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestAnalysisService_BinWidthTooNarrow(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(websocket.TypeAnalysisStarted)).Twice()
	pub.On("Publish", mock.Anything, eventOfType(websocket.TypeAnalysisFailed)).Twice()

	cfg := testConfig()
	cfg.MaxBins = 100
	svc := NewAnalysisService(cfg, nil, WithPublisher(pub))

	// ASTM ranges reach 9: width 0.05 needs bin 180, 1e-12 far more.
	for _, w := range []float64{1e-12, 0.05} {
		_, err := svc.Run(context.Background(), AnalysisInput{Values: astmValues(), BinWidth: w})
		require.Error(t, err, "width %v", w)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		assert.ErrorIs(t, err, report.ErrInvalidBinWidth)
	}
	pub.AssertExpectations(t)

	// 9 / 0.1 lands in bin 90.
	resp, err := NewAnalysisService(cfg, nil).Analyze(context.Background(),
		AnalysisInput{Values: astmValues(), BinWidth: 0.1})
	require.NoError(t, err)
	assert.Len(t, resp.Histogram, 91)
}

func TestAnalysisService_OnlyNonNumericValues(t *testing.T) {
	svc := NewAnalysisService(testConfig(), nil)
	resp, err := svc.Analyze(context.Background(), AnalysisInput{Values: []any{"load", nil, "n/a"}})
	require.NoError(t, err)

	assert.Zero(t, resp.Summary.Samples)
	assert.Empty(t, resp.Extrema.Values)
	assert.Empty(t, resp.Peaks)
	assert.Empty(t, resp.Valleys)
	assert.Empty(t, resp.Histogram)
}

func TestAnalysisService_NoHistogramWithoutWidth(t *testing.T) {
	svc := NewAnalysisService(config.AnalysisConfig{}, nil)
	resp, err := svc.Analyze(context.Background(), AnalysisInput{Values: astmValues()})
	require.NoError(t, err)
	assert.Nil(t, resp.Histogram)
	assert.NotEmpty(t, resp.Spectrum)
}

func TestAnalysisService_CancelledContext(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(websocket.TypeAnalysisStarted)).Once()
	pub.On("Publish", mock.Anything, eventOfType(websocket.TypeAnalysisFailed)).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewAnalysisService(testConfig(), nil, WithPublisher(pub))
	_, err := svc.Run(ctx, AnalysisInput{Values: astmValues()})
	assert.ErrorIs(t, err, context.Canceled)
	pub.AssertExpectations(t)
}

func TestAnalysisService_AnalyzeUpload(t *testing.T) {
	svc := NewAnalysisService(testConfig(), nil)

	csv := "load\n-2\n1\n-3\n5\n-1\n3\n-4\n4\n-2\n"
	resp, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName: "history.csv",
		Reader:   strings.NewReader(csv),
		Options:  loader.Options{SkipRows: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "history.csv", resp.Name)
	assert.Equal(t, domain.SourceUpload, resp.Source)
	assert.Equal(t, 9.0, resp.Summary.MaxRange)

	fromJSON, err := svc.Analyze(context.Background(), AnalysisInput{Values: astmValues()})
	require.NoError(t, err)
	assert.Equal(t, fromJSON.Digest, resp.Digest)
	assert.NotEqual(t, fromJSON.ID, resp.ID)

	_, err = svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName: "history.json",
		Reader:   bytes.NewReader(nil),
	})
	assert.ErrorIs(t, err, loader.ErrUnsupportedFormat)
}

func TestAnalysisService_AnalyzeFile(t *testing.T) {
	column := make([]any, 0, len(testutil.ASTMSignal))
	for _, v := range testutil.ASTMSignal {
		column = append(column, v)
	}
	path := testutil.WriteWorkbook(t, t.TempDir(), "history.xlsx", "Loads", column)

	svc := NewAnalysisService(testConfig(), nil)
	a, err := svc.AnalyzeFile(context.Background(), path, loader.Options{}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFile, a.Source)
	assert.Equal(t, path, a.Name)
	assert.Len(t, a.Result.Signal, 9)
	assert.NotEmpty(t, a.Bins)

	_, err = svc.AnalyzeFile(context.Background(), path+".missing.xlsx", loader.Options{}, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestAnalysisService_Telemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateAppMetrics(mp.Meter("test"))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	svc := NewAnalysisService(testConfig(), nil,
		WithMetrics(metrics),
		WithTracer(tp.Tracer("test")))

	_, err = svc.Run(context.Background(), AnalysisInput{Values: astmValues()})
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), AnalysisInput{})
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "rainflow_analyses_total" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				outcomes[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{
		infrastructure.OutcomeSuccess: 1,
		infrastructure.OutcomeFailure: 1,
	}, outcomes)

	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	assert.True(t, names["AnalysisService.Run"])
	assert.True(t, names["rainflow.Count"])
	assert.True(t, names["rainflow.Close"])
}

func TestAnalysisService_AnalyzeSpreadsheet(t *testing.T) {
	opts := loader.Options{Sheet: "Loads", Column: 2, SkipRows: 1}
	src := &mockSpreadsheet{}
	src.On("Load", mock.Anything, "sheet-id", opts).Return(astmValues(), nil).Once()
	src.On("Load", mock.Anything, "gone", opts).Return(nil, apperrors.NewNotFoundError("spreadsheet gone", nil)).Once()

	svc := NewAnalysisService(testConfig(), nil)
	a, err := svc.AnalyzeSpreadsheet(context.Background(), src, "sheet-id", opts, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSheets, a.Source)
	assert.Equal(t, "sheet-id", a.Name)
	assert.Len(t, a.Bins, 5)

	_, err = svc.AnalyzeSpreadsheet(context.Background(), src, "gone", opts, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	src.AssertExpectations(t)
}
