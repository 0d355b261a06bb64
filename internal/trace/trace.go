// Package trace owns the process-wide OpenTelemetry tracer. Spans are
// exported to stdout and only recorded when LOG_TRACING_ENABLED=true.
package trace

import (
	"context"
	"io"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "sales-dashboard"

var (
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
)

type settings struct {
	enabled bool
	ratio   float64
	out     io.Writer
	pretty  bool
}

type Option func(*settings)

// WithEnabled overrides LOG_TRACING_ENABLED
func WithEnabled(on bool) Option {
	return func(s *settings) { s.enabled = on }
}

// WithWriter sends exported spans to w instead of stdout, compact encoded
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.out = w
		s.pretty = false
	}
}

// WithSampleRatio samples root spans at the given ratio; children follow
// their parent
func WithSampleRatio(r float64) Option {
	return func(s *settings) { s.ratio = r }
}

func fromEnv() settings {
	s := settings{
		enabled: os.Getenv("LOG_TRACING_ENABLED") == "true",
		ratio:   1,
		out:     os.Stdout,
		pretty:  true,
	}
	if v, err := strconv.ParseFloat(os.Getenv("LOG_TRACE_SAMPLE_RATIO"), 64); err == nil && v >= 0 && v <= 1 {
		s.ratio = v
	}
	return s
}

// Init installs the tracer provider. It is a no-op when tracing is off.
func Init(version string, opts ...Option) error {
	s := fromEnv()
	for _, opt := range opts {
		opt(&s)
	}
	enabled = false
	if !s.enabled {
		return nil
	}

	exporterOpts := []stdouttrace.Option{stdouttrace.WithWriter(s.out)}
	if s.pretty {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return err
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.ratio))),
	)
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(serviceName)
	enabled = true
	return nil
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	err := provider.Shutdown(ctx)
	provider = nil
	enabled = false
	return err
}

// StartSpan starts a span, or hands back the span already in ctx when
// tracing is off
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

func Enabled() bool {
	return enabled
}

// GetTraceFields returns the hex trace and span ids of the span in ctx
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
