// File: internal/observability/metrics.go
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// NewMeterProvider creates a provider whose instruments are read on demand
// through the returned reader.
func NewMeterProvider(serviceName string) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	return mp, reader
}

// Point is one collected data point. Histograms report their count and sum.
type Point struct {
	Metric     string
	Attributes attribute.Set
	Value      float64
	Count      uint64
}

// CollectPoints reads every instrument once and flattens the data points.
func CollectPoints(ctx context.Context, reader sdkmetric.Reader) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	var out []Point
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Point{Metric: m.Name, Attributes: dp.Attributes, Value: float64(dp.Value)})
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Point{Metric: m.Name, Attributes: dp.Attributes, Value: dp.Value})
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out = append(out, Point{Metric: m.Name, Attributes: dp.Attributes, Value: float64(dp.Value)})
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Point{Metric: m.Name, Attributes: dp.Attributes, Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out = append(out, Point{Metric: m.Name, Attributes: dp.Attributes, Value: dp.Sum, Count: dp.Count})
				}
			}
		}
	}
	return out, nil
}

// LogMetrics collects reader and writes one debug entry per data point, the
// way finished spans are logged.
func LogMetrics(ctx context.Context, logger *zap.Logger, reader sdkmetric.Reader) error {
	points, err := CollectPoints(ctx, reader)
	if err != nil {
		return err
	}
	l := logger.Named("metrics")
	for _, p := range points {
		fields := []zap.Field{zap.String("metric", p.Metric), zap.Float64("value", p.Value)}
		if p.Count > 0 {
			fields = append(fields, zap.Uint64("count", p.Count))
		}
		for _, kv := range p.Attributes.ToSlice() {
			fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
		}
		l.Debug("Metric collected.", fields...)
	}
	return nil
}
