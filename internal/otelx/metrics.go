package otelx

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the named counters and histogram §4 of the expanded spec
// ties to the agent's keepalive, dispatch, check, and result paths.
type Metrics struct {
	config   *Config
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
	shutdown func(context.Context) error
	mu       sync.RWMutex

	keepalivesPublished metric.Int64Counter
	keepalivesErrors    metric.Int64Counter
	decodeErrors        metric.Int64Counter
	checkDuration       metric.Float64Histogram
	resultsPublished    metric.Int64Counter
	resultsErrors       metric.Int64Counter
}

// NewMetrics builds a Metrics instance from cfg. A disabled or
// ExporterNone config returns a live no-op meter rather than an error.
func NewMetrics(ctx context.Context, cfg *Config) (*Metrics, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Metrics{config: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.provider = sdkmetric.NewMeterProvider()
		m.meter = m.provider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		return m, m.registerInstruments()
	}

	exporter, err := m.createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metrics exporter: %w", err)
	}

	res, err := buildResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("build metrics resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)

	m.provider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, fmt.Errorf("register metric instruments: %w", err)
	}
	return m, nil
}

func (m *Metrics) createExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()
	case ExporterOTLP:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func (m *Metrics) registerInstruments() error {
	var err error

	m.keepalivesPublished, err = m.meter.Int64Counter("sentryd.keepalives.published",
		metric.WithDescription("Count of keepalive payloads published"))
	if err != nil {
		return err
	}
	m.keepalivesErrors, err = m.meter.Int64Counter("sentryd.keepalives.errors",
		metric.WithDescription("Count of keepalive publish failures"))
	if err != nil {
		return err
	}
	m.decodeErrors, err = m.meter.Int64Counter("sentryd.transport.decode_errors",
		metric.WithDescription("Count of inbound transport messages that failed to decode"))
	if err != nil {
		return err
	}
	m.checkDuration, err = m.meter.Float64Histogram("sentryd.check.duration",
		metric.WithDescription("Duration of check execution"), metric.WithUnit("s"))
	if err != nil {
		return err
	}
	m.resultsPublished, err = m.meter.Int64Counter("sentryd.results.published",
		metric.WithDescription("Count of check results published"))
	if err != nil {
		return err
	}
	m.resultsErrors, err = m.meter.Int64Counter("sentryd.results.errors",
		metric.WithDescription("Count of check result publish failures"))
	return err
}

// KeepaliveResult records one keepalive publish attempt.
func (m *Metrics) KeepaliveResult(ctx context.Context, err error) {
	if err != nil {
		m.keepalivesErrors.Add(ctx, 1)
		return
	}
	m.keepalivesPublished.Add(ctx, 1)
}

// DecodeError records one inbound transport message that failed to decode.
func (m *Metrics) DecodeError(ctx context.Context) {
	m.decodeErrors.Add(ctx, 1)
}

// CheckDuration records how long one check took to run, tagged by check
// name and result status.
func (m *Metrics) CheckDuration(ctx context.Context, checkName string, status int, seconds float64) {
	m.checkDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("check.name", checkName),
		attribute.String("check.status", strconv.Itoa(status)),
	))
}

// ResultPublished records one result-envelope publish attempt.
func (m *Metrics) ResultPublished(ctx context.Context, err error) {
	if err != nil {
		m.resultsErrors.Add(ctx, 1)
		return
	}
	m.resultsPublished.Add(ctx, 1)
}

// Shutdown flushes and tears down the underlying meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown != nil {
		return m.shutdown(ctx)
	}
	return nil
}

// SetGlobalProviders installs t and m as the process-wide OpenTelemetry
// providers, for libraries that reach for the global otel API directly.
func SetGlobalProviders(t *Tracer, m *Metrics) {
	if t != nil {
		otel.SetTracerProvider(t.provider)
	}
	if m != nil {
		otel.SetMeterProvider(m.provider)
	}
}

// NoopMetrics returns a metrics instance that discards everything, for
// tests and disabled telemetry.
func NoopMetrics() *Metrics {
	cfg := DefaultConfig()
	cfg.ExporterType = ExporterNone
	mp := sdkmetric.NewMeterProvider()
	m := &Metrics{
		config:   cfg,
		provider: mp,
		meter:    mp.Meter(cfg.ServiceName),
		shutdown: func(context.Context) error { return nil },
	}
	_ = m.registerInstruments()
	return m
}
