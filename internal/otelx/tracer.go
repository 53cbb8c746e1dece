// Package otelx wires OpenTelemetry tracing and metrics into the agent:
// an OTLP/gRPC exporter when telemetry.otlp_endpoint is configured,
// stdout exporters otherwise, so the agent is observable with zero extra
// infrastructure.
package otelx

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ExporterType selects where spans and metrics go.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp-grpc"
)

// Config holds the resource attributes and exporter selection shared by
// tracing and metrics.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	HostName       string
	ExporterType   ExporterType
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// DefaultConfig returns stdout-exporting tracing for the agent, following
// the teacher's zero-infrastructure default.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		ServiceName:  "sentryd",
		ExporterType: ExporterStdout,
		SampleRate:   1.0,
	}
}

// ConfigFromEndpoint builds a Config that uses OTLP/gRPC when endpoint is
// non-empty, stdout otherwise.
func ConfigFromEndpoint(clientName, version, endpoint string) *Config {
	cfg := DefaultConfig()
	cfg.ServiceVersion = version
	cfg.HostName = clientName
	if endpoint != "" {
		cfg.ExporterType = ExporterOTLP
		cfg.OTLPEndpoint = endpoint
	}
	return cfg
}

// Tracer wraps an OpenTelemetry tracer with the agent's own span-naming
// conventions.
type Tracer struct {
	config     *Config
	provider   trace.TracerProvider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	shutdown   func(context.Context) error
	mu         sync.RWMutex
}

// NewTracer builds a Tracer from cfg. A disabled or ExporterNone config
// returns a live no-op tracer rather than an error.
func NewTracer(ctx context.Context, cfg *Config) (*Tracer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	t := &Tracer{
		config:     cfg,
		propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		t.provider = noop.NewTracerProvider()
		t.tracer = t.provider.Tracer(cfg.ServiceName)
		t.shutdown = func(context.Context) error { return nil }
		return t, nil
	}

	exporter, err := t.createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := buildResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	sampler := samplerFor(cfg.SampleRate)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	t.provider = tp
	t.tracer = tp.Tracer(cfg.ServiceName)
	t.shutdown = tp.Shutdown
	otel.SetTextMapPropagator(t.propagator)

	return t, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func (t *Tracer) createExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func buildResource(cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.HostName != "" {
		attrs = append(attrs, semconv.HostName(cfg.HostName))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes("", attrs...))
}

// Shutdown flushes and tears down the underlying provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shutdown != nil {
		return t.shutdown(ctx)
	}
	return nil
}

// StartSpan starts a bare span, for lifecycle events (agent.start,
// agent.stop) that don't carry check-specific attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartCheckSpan starts a span for one check execution, tagged with the
// check name and kind ("command" or "extension").
func (t *Tracer) StartCheckSpan(ctx context.Context, checkName, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "check."+kind,
		trace.WithAttributes(attribute.String("check.name", checkName)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// NoopTracer returns a tracer that discards everything, for tests and
// disabled telemetry.
func NoopTracer() *Tracer {
	tp := noop.NewTracerProvider()
	return &Tracer{
		config:     DefaultConfig(),
		provider:   tp,
		tracer:     tp.Tracer("sentryd"),
		propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}),
		shutdown:   func(context.Context) error { return nil },
	}
}
