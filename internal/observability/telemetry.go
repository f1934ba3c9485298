// File: internal/observability/telemetry.go
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// InstrumentationName scopes every tracer and meter the pipeline creates.
const InstrumentationName = "github.com/xkilldash9x/uiprobe"

// Telemetry bundles the tracer and meter handed to the pipeline.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	// Metrics, when set, reads Meter's instruments; a run logs them on exit.
	Metrics sdkmetric.Reader
}

// NewTelemetry derives the pipeline tracer and meter from providers.
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Telemetry {
	return Telemetry{
		Tracer: tp.Tracer(InstrumentationName),
		Meter:  mp.Meter(InstrumentationName),
	}
}

// NoopTelemetry discards everything.
func NoopTelemetry() Telemetry {
	return NewTelemetry(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
}

// NewTracerProvider creates a provider that logs finished spans through
// logger at debug level.
func NewTracerProvider(logger *zap.Logger, serviceName string) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(NewZapSpanExporter(logger))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
}

// ZapSpanExporter writes finished spans to a zap logger.
type ZapSpanExporter struct {
	logger *zap.Logger
}

var _ sdktrace.SpanExporter = (*ZapSpanExporter)(nil)

func NewZapSpanExporter(logger *zap.Logger) *ZapSpanExporter {
	return &ZapSpanExporter{logger: logger.Named("trace")}
}

func (e *ZapSpanExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := []zap.Field{
			zap.String("span", s.Name()),
			zap.String("trace_id", s.SpanContext().TraceID().String()),
			zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
			zap.String("status", s.Status().Code.String()),
		}
		if d := s.Status().Description; d != "" {
			fields = append(fields, zap.String("status_description", d))
		}
		for _, kv := range s.Attributes() {
			fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
		}
		e.logger.Debug("Span finished.", fields...)
	}
	return nil
}

func (e *ZapSpanExporter) Shutdown(context.Context) error { return nil }
