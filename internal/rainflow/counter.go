package rainflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Assemble bundles the extrema sequence and the closed records.
func Assemble(sig Signal, ext ExtremaSequence, peaks, valleys []Record) *Result {
	return &Result{
		Signal:  sig,
		Extrema: ext,
		Peaks:   peaks,
		Valleys: valleys,
	}
}

// Count runs the full pipeline on raw input. It is deterministic and
// keeps no state between calls.
func Count(values []any) *Result {
	return NewCounter(nil).countSignal(context.Background(), len(values), Clean(values))
}

// CountFloats runs the full pipeline on numeric input.
func CountFloats(values []float64) *Result {
	return NewCounter(nil).countSignal(context.Background(), len(values), CleanFloats(values))
}

// Option configures a Counter
type Option func(*Counter)

// WithTracer records a span per analysis and per closure pass.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Counter) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Counter wraps the engine with logging, tracing and context handling.
type Counter struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewCounter creates a counter. A nil logger falls back to slog.Default.
func NewCounter(logger *slog.Logger, opts ...Option) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Counter{
		logger: logger.With(slog.String("component", "rainflow")),
		tracer: noop.NewTracerProvider().Tracer("rainflow"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count cleans values, extracts extrema and closes the peak and valley
// records as two parallel passes joined before assembly.
//
// The context is checked before the passes start and after they join;
// the passes themselves always run to completion. An invariant
// violation inside a pass is re-raised as a panic on the calling
// goroutine once both passes have joined.
func (c *Counter) Count(ctx context.Context, values []any) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rainflow count: %w", err)
	}
	res := c.countSignal(ctx, len(values), Clean(values))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rainflow count: %w", err)
	}
	return res, nil
}

// countSignal extracts, classifies and closes sig. input is the raw value
// count, for logging.
func (c *Counter) countSignal(ctx context.Context, input int, sig Signal) *Result {
	ctx, span := c.tracer.Start(ctx, "rainflow.Count")
	defer span.End()

	start := time.Now()
	ext := Extract(sig)
	peaks, valleys := Classify(ext)

	span.SetAttributes(
		attribute.Int("rainflow.input", input),
		attribute.Int("rainflow.samples", len(sig)),
		attribute.Int("rainflow.extrema", ext.Len()),
	)
	c.logger.DebugContext(ctx, "extrema extracted",
		slog.Int("input", input),
		slog.Int("samples", len(sig)),
		slog.Int("dropped", input-len(sig)),
		slog.Int("extrema", ext.Len()),
		slog.Int("peaks", len(peaks)),
		slog.Int("valleys", len(valleys)),
	)

	// Passes only fail by panicking; closePass turns that into an error
	// so it can be re-raised here, on the caller's goroutine.
	var g errgroup.Group
	g.Go(func() error {
		return c.closePass(ctx, ext, peaks, Peak)
	})
	g.Go(func() error {
		return c.closePass(ctx, ext, valleys, Valley)
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		panic(err.Error())
	}

	res := Assemble(sig, ext, peaks, valleys)
	c.logger.DebugContext(ctx, "cycles closed",
		slog.Int("records", len(peaks)+len(valleys)),
		slog.Int("open", len(res.Open())),
		slog.Duration("duration", time.Since(start)),
	)
	return res
}

// passPanic carries a panic out of a closure pass goroutine.
type passPanic struct {
	kind  Kind
	value any
}

func (p *passPanic) Error() string {
	return fmt.Sprintf("rainflow: %s pass: %v", p.kind, p.value)
}

func (c *Counter) closePass(ctx context.Context, ext ExtremaSequence, records []Record, kind Kind) (err error) {
	_, span := c.tracer.Start(ctx, "rainflow.Close",
		trace.WithAttributes(
			attribute.String("rainflow.kind", kind.String()),
			attribute.Int("rainflow.records", len(records)),
		))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			err = &passPanic{kind: kind, value: rec}
		}
	}()

	Close(ext, records)
	return nil
}
