// File: internal/orchestrator/units.go
package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/reporting"
)

// unit is one route rendered at one viewport.
type unit struct {
	route    config.Route
	viewport config.Viewport
}

func (u unit) key() string { return u.route.Name + "@" + u.viewport.Name }

// matrix lists every route at every viewport, route-major in config order.
func (o *Orchestrator) matrix() []unit {
	var units []unit
	for _, r := range o.cfg.Target.Routes {
		for _, v := range o.cfg.Target.Viewports {
			units = append(units, unit{route: r, viewport: v})
		}
	}
	return units
}

// firstViewport lists every route at the first configured viewport.
func (o *Orchestrator) firstViewport() []unit {
	if len(o.cfg.Target.Viewports) == 0 {
		return nil
	}
	units := make([]unit, 0, len(o.cfg.Target.Routes))
	for _, r := range o.cfg.Target.Routes {
		units = append(units, unit{route: r, viewport: o.cfg.Target.Viewports[0]})
	}
	return units
}

type unitResult[R any] struct {
	name  string
	value R
	err   error
}

// runUnits applies fn to every item with at most engine.concurrency running
// at once. Failures and panics stay with their unit; results come back in
// input order.
func runUnits[T, R any](ctx context.Context, o *Orchestrator, p Phase, items []T, name func(T) string, fn func(context.Context, T) (R, error)) []unitResult[R] {
	results := make([]unitResult[R], len(items))
	limit := o.cfg.Engine.Concurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			n := name(item)
			results[i] = unitResult[R]{name: n}
			uctx, span := o.deps.Telemetry.Tracer.Start(ctx, "unit."+string(p))
			span.SetAttributes(attribute.String("unit", n))
			defer span.End()

			outcome := "ok"
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("Unit panicked.", zap.String("phase", string(p)), zap.String("unit", n),
						zap.Any("panic_value", r), zap.Stack("stack"))
					results[i].err = fmt.Errorf("unit %s panicked: %v", n, r)
					outcome = "error"
				}
				if err := results[i].err; err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				o.metrics.units.Add(uctx, 1, metric.WithAttributes(
					attribute.String("phase", string(p)), attribute.String("outcome", outcome)))
			}()

			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				outcome = "canceled"
				return nil
			}
			v, err := fn(uctx, item)
			results[i].value, results[i].err = v, err
			if err != nil {
				outcome = "error"
				o.logger.Warn("Unit failed.", zap.String("phase", string(p)), zap.String("unit", n), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// collect records failed units on the report and returns the successful
// values in order.
func collect[R any](m *reporting.MasterReport, p Phase, results []unitResult[R]) []R {
	out := make([]R, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			m.Errored(string(p), r.name, r.err)
			continue
		}
		out = append(out, r.value)
	}
	return out
}

type runMetrics struct {
	units         metric.Int64Counter
	issues        metric.Int64Counter
	phaseDuration metric.Float64Histogram
	auditScore    metric.Float64Histogram
	health        metric.Float64Gauge
}

func newRunMetrics(meter metric.Meter) (*runMetrics, error) {
	m := &runMetrics{}
	var err error
	if m.units, err = meter.Int64Counter("uiprobe.units",
		metric.WithDescription("Units of work processed, by phase and outcome"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create units counter: %w", err)
	}
	if m.issues, err = meter.Int64Counter("uiprobe.issues",
		metric.WithDescription("Accessibility issues detected, by impact"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create issues counter: %w", err)
	}
	if m.phaseDuration, err = meter.Float64Histogram("uiprobe.phase.duration",
		metric.WithDescription("Phase duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("create phase duration histogram: %w", err)
	}
	if m.auditScore, err = meter.Float64Histogram("uiprobe.audit.score",
		metric.WithDescription("Overall accessibility score per unit"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create audit score histogram: %w", err)
	}
	if m.health, err = meter.Float64Gauge("uiprobe.health",
		metric.WithDescription("Health score of the last run"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("create health gauge: %w", err)
	}
	return m, nil
}
