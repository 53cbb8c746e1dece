package otelx

import (
	"context"
	"errors"
	"testing"
)

func TestNoopTracerStartsAndShutsDownCleanly(t *testing.T) {
	tracer := NoopTracer()
	ctx, span := tracer.StartSpan(context.Background(), "agent.start")
	span.End()
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestNoopTracerStartCheckSpan(t *testing.T) {
	tracer := NoopTracer()
	_, span := tracer.StartCheckSpan(context.Background(), "chk1", "command")
	defer span.End()
	if !span.SpanContext().IsValid() && span.IsRecording() {
		t.Fatal("unexpected recording no-op span")
	}
}

func TestNoopMetricsRecordsWithoutPanicking(t *testing.T) {
	m := NoopMetrics()
	ctx := context.Background()

	m.KeepaliveResult(ctx, nil)
	m.KeepaliveResult(ctx, errors.New("boom"))
	m.DecodeError(ctx)
	m.CheckDuration(ctx, "chk1", 0, 0.125)
	m.ResultPublished(ctx, nil)
	m.ResultPublished(ctx, errors.New("boom"))

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

func TestConfigFromEndpointSelectsOTLPWhenSet(t *testing.T) {
	cfg := ConfigFromEndpoint("host1", "1.0.0", "localhost:4317")
	if cfg.ExporterType != ExporterOTLP {
		t.Fatalf("expected OTLP exporter, got %v", cfg.ExporterType)
	}

	cfg = ConfigFromEndpoint("host1", "1.0.0", "")
	if cfg.ExporterType != ExporterStdout {
		t.Fatalf("expected stdout exporter, got %v", cfg.ExporterType)
	}
}
