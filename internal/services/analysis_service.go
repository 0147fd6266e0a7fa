package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	apperrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
	"github.com/djangbahevans/RainflowCycleCounting/internal/loader"
	"github.com/djangbahevans/RainflowCycleCounting/internal/rainflow"
	"github.com/djangbahevans/RainflowCycleCounting/internal/report"
	"github.com/djangbahevans/RainflowCycleCounting/internal/websocket"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

// AnalysisInput is one analysis request after transport decoding
type AnalysisInput struct {
	Name   string
	Source string
	Values []any
	// BinWidth selects the histogram width. Zero uses the configured
	// default.
	BinWidth float64
}

// UploadInput is an analysis over an uploaded workbook or CSV file
type UploadInput struct {
	Name     string
	FileName string
	Reader   io.Reader
	Options  loader.Options
	BinWidth float64
}

// Analysis is a completed run
type Analysis struct {
	ID        string
	Name      string
	Source    string
	Digest    string
	CreatedAt time.Time
	Duration  time.Duration
	Result    *rainflow.Result
	Bins      []report.SpectrumBin
}

// AnalysisOption configures an AnalysisService
type AnalysisOption func(*AnalysisService)

// WithTracer sets the tracer used for service and engine spans
func WithTracer(tracer trace.Tracer) AnalysisOption {
	return func(s *AnalysisService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics records analysis metrics on m
func WithMetrics(m *infrastructure.AppMetrics) AnalysisOption {
	return func(s *AnalysisService) {
		s.metrics = m
	}
}

// WithPublisher sends lifecycle events to p
func WithPublisher(p websocket.Publisher) AnalysisOption {
	return func(s *AnalysisService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// AnalysisService runs rainflow analyses
type AnalysisService struct {
	cfg       config.AnalysisConfig
	counter   *rainflow.Counter
	tracer    trace.Tracer
	metrics   *infrastructure.AppMetrics
	publisher websocket.Publisher
	logger    *slog.Logger
}

// NewAnalysisService creates the service. A zero MaxSamples disables
// the sample limit.
func NewAnalysisService(cfg config.AnalysisConfig, logger *slog.Logger, opts ...AnalysisOption) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AnalysisService{
		cfg:       cfg,
		tracer:    noop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		publisher: websocket.NopPublisher{},
		logger:    logger.With(slog.String("service", "analysis")),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.counter = rainflow.NewCounter(logger, rainflow.WithTracer(s.tracer))
	return s
}

// Analyze runs in and returns the wire response
func (s *AnalysisService) Analyze(ctx context.Context, in AnalysisInput) (*domain.AnalysisResponse, error) {
	a, err := s.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	return BuildResponse(a), nil
}

// AnalyzeUpload loads an uploaded file and analyses its values
func (s *AnalysisService) AnalyzeUpload(ctx context.Context, in UploadInput) (*domain.AnalysisResponse, error) {
	values, err := loader.LoadReader(in.FileName, in.Reader, in.Options)
	if err != nil {
		s.metrics.RecordAnalysis(ctx, domain.SourceUpload, infrastructure.OutcomeFailure, 0, 0, 0)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("file_name", in.FileName),
			slog.String("error", err.Error()))
		return nil, err
	}

	name := in.Name
	if name == "" {
		name = in.FileName
	}
	return s.Analyze(ctx, AnalysisInput{
		Name:     name,
		Source:   domain.SourceUpload,
		Values:   values,
		BinWidth: in.BinWidth,
	})
}

// AnalyzeFile loads path and analyses its values
func (s *AnalysisService) AnalyzeFile(ctx context.Context, path string, opts loader.Options, binWidth float64) (*Analysis, error) {
	values, err := loader.Load(path, opts)
	if err != nil {
		s.metrics.RecordAnalysis(ctx, domain.SourceFile, infrastructure.OutcomeFailure, 0, 0, 0)
		return nil, err
	}
	return s.Run(ctx, AnalysisInput{
		Name:     path,
		Source:   domain.SourceFile,
		Values:   values,
		BinWidth: binWidth,
	})
}

// SpreadsheetSource reads values from a hosted spreadsheet.
// *loader.SheetsLoader implements it.
type SpreadsheetSource interface {
	Load(ctx context.Context, spreadsheetID string, opts loader.Options) ([]any, error)
}

// AnalyzeSpreadsheet loads a hosted spreadsheet through src and analyses
// its values
func (s *AnalysisService) AnalyzeSpreadsheet(ctx context.Context, src SpreadsheetSource, spreadsheetID string, opts loader.Options, binWidth float64) (*Analysis, error) {
	values, err := src.Load(ctx, spreadsheetID, opts)
	if err != nil {
		s.metrics.RecordAnalysis(ctx, domain.SourceSheets, infrastructure.OutcomeFailure, 0, 0, 0)
		s.logger.WarnContext(ctx, "spreadsheet load failed",
			slog.String("spreadsheet_id", spreadsheetID),
			slog.String("error", err.Error()))
		return nil, err
	}
	return s.Run(ctx, AnalysisInput{
		Name:     spreadsheetID,
		Source:   domain.SourceSheets,
		Values:   values,
		BinWidth: binWidth,
	})
}

// Run validates in, counts its cycles and bins the ranges. Engine
// invariant violations come back as INVARIANT application errors.
func (s *AnalysisService) Run(ctx context.Context, in AnalysisInput) (*Analysis, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if in.Source == "" {
		in.Source = domain.SourceJSON
	}
	id := uuid.New().String()

	ctx, span := s.tracer.Start(ctx, "AnalysisService.Run",
		trace.WithAttributes(
			attribute.String("analysis.id", id),
			attribute.String("analysis.source", in.Source),
			attribute.Int("analysis.input", len(in.Values)),
		))
	defer span.End()

	logger := s.logger.With(
		slog.String("analysis_id", id),
		slog.String("source", in.Source))

	if err := s.validate(in); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordAnalysis(ctx, in.Source, infrastructure.OutcomeFailure, len(in.Values), 0, 0)
		infrastructure.WithError(logger, err).WarnContext(ctx, "analysis rejected")
		return nil, err
	}

	width := in.BinWidth
	if width == 0 {
		width = s.cfg.DefaultBinWidth
	}

	logger.InfoContext(ctx, "analysis started", slog.Int("input", len(in.Values)))
	s.publish(ctx, websocket.TypeAnalysisStarted, id, domain.AnalysisEvent{
		Name:   in.Name,
		Source: in.Source,
		Input:  len(in.Values),
	})

	started := time.Now()
	res, err := s.count(ctx, in.Values)
	var bins []report.SpectrumBin
	if err == nil && width > 0 {
		bins, err = report.BinLimit(res, width, s.cfg.MaxBins)
		if errors.Is(err, report.ErrInvalidBinWidth) {
			err = apperrors.NewAppError(apperrors.ErrTypeValidation, err.Error(), err).
				WithContext("bin_width", width)
		}
	}
	elapsed := time.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordAnalysis(ctx, in.Source, infrastructure.OutcomeFailure, len(in.Values), 0, elapsed)
		infrastructure.WithError(logger, err).ErrorContext(ctx, "analysis failed",
			slog.Duration("duration", elapsed))
		s.publish(ctx, websocket.TypeAnalysisFailed, id, domain.AnalysisEvent{
			Name:     in.Name,
			Source:   in.Source,
			Input:    len(in.Values),
			Duration: elapsed.String(),
			Error:    err.Error(),
		})
		return nil, err
	}

	summary := report.Summarize(res)
	digest := report.Digest(res.Signal)
	s.metrics.RecordAnalysis(ctx, in.Source, infrastructure.OutcomeSuccess, summary.Samples, summary.Extrema, elapsed)
	span.SetAttributes(
		attribute.Int("analysis.samples", summary.Samples),
		attribute.Int("analysis.extrema", summary.Extrema),
		attribute.Int("analysis.half_cycles", summary.HalfCycles),
		attribute.String("analysis.digest", digest),
	)
	logger.InfoContext(ctx, "analysis completed",
		slog.Int("samples", summary.Samples),
		slog.Int("extrema", summary.Extrema),
		slog.Int("half_cycles", summary.HalfCycles),
		slog.Float64("max_range", summary.MaxRange),
		slog.Duration("duration", elapsed))

	view := SummaryView(summary)
	s.publish(ctx, websocket.TypeAnalysisCompleted, id, domain.AnalysisEvent{
		Name:     in.Name,
		Source:   in.Source,
		Input:    len(in.Values),
		Digest:   digest,
		Summary:  &view,
		Duration: elapsed.String(),
	})

	return &Analysis{
		ID:        id,
		Name:      in.Name,
		Source:    in.Source,
		Digest:    digest,
		CreatedAt: started.UTC(),
		Duration:  elapsed,
		Result:    res,
		Bins:      bins,
	}, nil
}

func (s *AnalysisService) validate(in AnalysisInput) error {
	if len(in.Values) == 0 {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "values must not be empty", ErrNoValues)
	}
	if s.cfg.MaxSamples > 0 && len(in.Values) > s.cfg.MaxSamples {
		return apperrors.NewAppError(apperrors.ErrTypeValidation,
			fmt.Sprintf("%d values exceed the limit of %d", len(in.Values), s.cfg.MaxSamples),
			ErrTooManySamples).
			WithContext("max_samples", s.cfg.MaxSamples)
	}
	if in.BinWidth < 0 || math.IsNaN(in.BinWidth) || math.IsInf(in.BinWidth, 0) {
		return apperrors.NewAppValidationError(fmt.Sprintf("bin width must be a positive number, got %v", in.BinWidth))
	}
	return nil
}

func (s *AnalysisService) count(ctx context.Context, values []any) (res *rainflow.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.NewInvariantError(rec)
		}
	}()
	return s.counter.Count(ctx, values)
}

func (s *AnalysisService) publish(ctx context.Context, eventType, id string, data domain.AnalysisEvent) {
	s.publisher.Publish(ctx, websocket.Event{
		Type:       eventType,
		AnalysisID: id,
		TraceID:    infrastructure.GetTraceID(ctx),
		Timestamp:  time.Now().UTC(),
		Data:       data,
	})
}
