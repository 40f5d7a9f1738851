// Package tracing wires OpenTelemetry with a Jaeger exporter.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps an OpenTelemetry tracer and the provider that owns it.
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Config holds tracing configuration
type Config struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	JaegerEndpoint string `yaml:"jaeger_endpoint"`
	Environment    string `yaml:"environment"`
}

// NewTracer exports spans to Jaeger when enabled, otherwise every span is a no-op.
func NewTracer(config Config) (*Tracer, error) {
	if config.ServiceName == "" {
		config.ServiceName = "sleuth"
	}
	if !config.Enabled {
		return Noop(), nil
	}
	if config.JaegerEndpoint == "" {
		return nil, fmt.Errorf("jaeger endpoint is required when tracing is enabled")
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{tracer: tp.Tracer(config.ServiceName), shutdown: tp.Shutdown}, nil
}

// NewWithProvider uses an existing provider; the caller owns its shutdown.
func NewWithProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: tp.Tracer(name), shutdown: func(context.Context) error { return nil }}
}

// Noop returns a tracer that records nothing.
func Noop() *Tracer {
	return NewWithProvider(noop.NewTracerProvider(), "sleuth")
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartPassSpan starts the span of one orchestrator pass.
func (t *Tracer) StartPassSpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "orchestrator.pass")
}

// StartTaskSpan starts the span of one task execution.
func (t *Tracer) StartTaskSpan(ctx context.Context, taskID, description string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "task.execute", trace.WithAttributes(
		attribute.String("task.id", taskID),
		attribute.String("task.description", description),
	))
}

// StartSynthesisSpan starts the span of one synthesis attempt.
func (t *Tracer) StartSynthesisSpan(ctx context.Context, description string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "skill.synthesize", trace.WithAttributes(
		attribute.String("skill.description", description),
		attribute.Int("synthesis.attempt", attempt),
	))
}

// StartGenerationSpan starts the span of one generator request.
func (t *Tracer) StartGenerationSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	))
}

// RecordSpanError records an error in a span
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSpanSuccess records success in a span
func RecordSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// Shutdown flushes and stops the provider created by NewTracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
