// File: internal/orchestrator/orchestrator.go
// Description: Drives one audit run through its phases. Every collaborator is
// injected so a run can be exercised without a browser.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/design"
	"github.com/xkilldash9x/uiprobe/internal/explore"
	"github.com/xkilldash9x/uiprobe/internal/observability"
	"github.com/xkilldash9x/uiprobe/internal/reporting"
	"github.com/xkilldash9x/uiprobe/internal/uicheck"
)

// Deps are the components a run needs.
type Deps struct {
	Opener    browser.Opener
	Auditor   *audit.Auditor
	Extractor *design.Extractor
	Checker   *uicheck.Checker
	Explorer  *explore.Explorer
	Publisher *reporting.Publisher
	// References are the design sources analyzed by the references phase.
	References []design.Reference
	// Telemetry defaults to no-op instruments when left empty.
	Telemetry observability.Telemetry
}

// Orchestrator runs the phases of one audit run in order. It holds no
// state between runs.
type Orchestrator struct {
	cfg     *config.Config
	logger  *zap.Logger
	deps    Deps
	metrics *runMetrics
	now     func() time.Time
}

// New creates an Orchestrator.
func New(cfg *config.Config, logger *zap.Logger, deps Deps) (*Orchestrator, error) {
	if cfg == nil ||
		logger == nil ||
		deps.Opener == nil ||
		deps.Auditor == nil ||
		deps.Extractor == nil ||
		deps.Checker == nil ||
		deps.Explorer == nil ||
		deps.Publisher == nil {
		return nil, errors.New("cannot initialize orchestrator with nil dependencies")
	}
	if deps.Telemetry.Tracer == nil || deps.Telemetry.Meter == nil {
		deps.Telemetry = observability.NoopTelemetry()
	}
	metrics, err := newRunMetrics(deps.Telemetry.Meter)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.Named("orchestrator"),
		deps:    deps,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Run executes the phases selected by mode. A failing or panicking phase is
// recorded and the run moves on. The returned error is non-nil only when
// ctx ended the run early; the partial report is still returned.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (*reporting.MasterReport, error) {
	ctx, span := o.deps.Telemetry.Tracer.Start(ctx, "run", trace.WithAttributes(attribute.String("mode", string(mode))))
	defer span.End()

	m := reporting.NewMasterReport(string(mode), o.cfg.Target.BaseURL, o.now())
	o.logger.Info("Starting audit run",
		zap.String("run_id", m.RunID),
		zap.String("mode", string(mode)),
		zap.String("target", o.cfg.Target.BaseURL))

	for _, p := range PhaseOrder {
		if ctx.Err() != nil {
			m.Phases = append(m.Phases, reporting.PhaseStatus{Name: string(p), Status: reporting.StatusSkipped, Error: "run canceled"})
			continue
		}
		if !mode.Enabled(p, o.cfg.Phases) {
			o.logger.Debug("Phase disabled.", zap.String("phase", string(p)))
			m.Phases = append(m.Phases, reporting.PhaseStatus{Name: string(p), Status: reporting.StatusSkipped})
			continue
		}
		m.Phases = append(m.Phases, o.runPhase(ctx, p, m))
	}

	m.Synthesize(o.now())
	o.metrics.health.Record(ctx, m.HealthScore)
	span.SetAttributes(attribute.Float64("health_score", m.HealthScore))
	o.logger.Info("Audit run finished",
		zap.String("run_id", m.RunID),
		zap.Float64("health_score", m.HealthScore),
		zap.Int("issues", m.Summary.Issues.Total),
		zap.Int("errored_units", len(m.Coverage.Errored)))

	if reader := o.deps.Telemetry.Metrics; reader != nil {
		if err := observability.LogMetrics(browser.Detach(ctx), o.logger, reader); err != nil {
			o.logger.Warn("Failed to collect run metrics.", zap.Error(err))
		}
	}

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "run interrupted")
		return m, fmt.Errorf("run interrupted: %w", err)
	}
	return m, nil
}

func (o *Orchestrator) runPhase(ctx context.Context, p Phase, m *reporting.MasterReport) (status reporting.PhaseStatus) {
	start := time.Now()
	ctx, span := o.deps.Telemetry.Tracer.Start(ctx, "phase."+string(p))
	defer span.End()

	logger := o.logger.With(zap.String("phase", string(p)))
	logger.Info("Phase started.")
	status = reporting.PhaseStatus{Name: string(p), Status: reporting.StatusOK}

	fail := func(err error) {
		status.Status = reporting.StatusFailed
		status.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Phase panicked.", zap.Any("panic_value", r), zap.Stack("stack"))
			fail(fmt.Errorf("phase %s panicked: %v", p, r))
		}
		status.Duration = time.Since(start)
		o.metrics.phaseDuration.Record(ctx, float64(status.Duration.Milliseconds()),
			metric.WithAttributes(attribute.String("phase", string(p)), attribute.String("status", status.Status)))
		logger.Info("Phase finished.", zap.String("status", status.Status), zap.Duration("duration", status.Duration))
	}()

	if err := o.phase(p)(ctx, m); err != nil {
		logger.Error("Phase failed.", zap.Error(err))
		fail(err)
	}
	return status
}

func (o *Orchestrator) phase(p Phase) func(context.Context, *reporting.MasterReport) error {
	switch p {
	case PhaseReferences:
		return o.references
	case PhaseUI:
		return o.uiAnalysis
	case PhaseErrors:
		return o.runtimeErrors
	case PhaseExplore:
		return o.exploration
	case PhaseAccessibility:
		return o.accessibility
	case PhaseReport:
		return o.report
	case PhasePlan:
		return o.plan
	}
	return func(context.Context, *reporting.MasterReport) error {
		return fmt.Errorf("unknown phase %q", p)
	}
}

func (o *Orchestrator) references(ctx context.Context, m *reporting.MasterReport) error {
	refs := o.deps.References
	m.Coverage.ConfiguredSources += len(refs)
	if len(refs) == 0 {
		o.logger.Info("No reference sources selected.")
		return nil
	}
	results := runUnits(ctx, o, PhaseReferences, refs,
		func(r design.Reference) string { return r.Name },
		func(ctx context.Context, r design.Reference) (*design.Analysis, error) {
			return o.deps.Extractor.Extract(ctx, r)
		})
	analyses := collect(m, PhaseReferences, results)
	m.Designs = append(m.Designs, analyses...)
	m.Coverage.CompletedSources += len(analyses)
	return nil
}

func (o *Orchestrator) uiAnalysis(ctx context.Context, m *reporting.MasterReport) error {
	units := o.matrix()
	results := runUnits(ctx, o, PhaseUI, units, unit.key,
		func(ctx context.Context, u unit) (*uicheck.Report, error) {
			var r *uicheck.Report
			err := o.withPage(ctx, u, false, func(page browser.Page) error {
				var err error
				r, err = o.deps.Checker.Analyze(ctx, page, u.route.Name, u.viewport)
				return err
			})
			return r, err
		})
	reports := collect(m, PhaseUI, results)
	m.UI = append(m.UI, reports...)
	o.cover(m, len(units), len(reports))
	return nil
}

func (o *Orchestrator) runtimeErrors(ctx context.Context, m *reporting.MasterReport) error {
	units := o.firstViewport()
	results := runUnits(ctx, o, PhaseErrors, units, unit.key,
		func(ctx context.Context, u unit) (*reporting.RuntimeReport, error) {
			var r *reporting.RuntimeReport
			err := o.withPage(ctx, u, true, func(page browser.Page) error {
				if err := settle(ctx, o.cfg.Target.SettleTime); err != nil {
					return err
				}
				r = &reporting.RuntimeReport{
					Route:          u.route.Name,
					URL:            page.URL(),
					Status:         page.Status(),
					Console:        page.Console(),
					FailedRequests: page.FailedRequests(),
				}
				return nil
			})
			return r, err
		})
	reports := collect(m, PhaseErrors, results)
	m.Runtime = append(m.Runtime, reports...)
	o.cover(m, len(units), len(reports))
	return nil
}

func (o *Orchestrator) exploration(ctx context.Context, m *reporting.MasterReport) error {
	units := o.firstViewport()
	results := runUnits(ctx, o, PhaseExplore, units, unit.key,
		func(ctx context.Context, u unit) (*explore.Report, error) {
			var r *explore.Report
			err := o.withPage(ctx, u, false, func(page browser.Page) error {
				r = o.deps.Explorer.Explore(ctx, page, u.route)
				return nil
			})
			return r, err
		})
	reports := collect(m, PhaseExplore, results)
	m.Navigation = append(m.Navigation, reports...)
	o.cover(m, len(units), len(reports))
	return nil
}

func (o *Orchestrator) accessibility(ctx context.Context, m *reporting.MasterReport) error {
	units := o.matrix()
	results := runUnits(ctx, o, PhaseAccessibility, units, unit.key,
		func(ctx context.Context, u unit) (*audit.Report, error) {
			var r *audit.Report
			err := o.withPage(ctx, u, false, func(page browser.Page) error {
				var err error
				r, err = o.deps.Auditor.AuditPage(ctx, page, u.route.Name, u.viewport.Name)
				return err
			})
			if err != nil {
				return nil, err
			}
			o.recordAudit(ctx, r)
			if err := o.deps.Publisher.WriteAudit(r); err != nil {
				o.logger.Warn("Failed to write audit report.", zap.String("unit", u.key()), zap.Error(err))
			}
			return r, nil
		})
	reports := collect(m, PhaseAccessibility, results)
	m.Audits = append(m.Audits, reports...)
	o.cover(m, len(units), len(reports))
	return nil
}

func (o *Orchestrator) report(_ context.Context, m *reporting.MasterReport) error {
	return o.publish(m, PhaseReport, o.deps.Publisher.Publish)
}

func (o *Orchestrator) plan(_ context.Context, m *reporting.MasterReport) error {
	return o.publish(m, PhasePlan, o.deps.Publisher.PublishPlan)
}

// publish writes m with p recorded as ok and every later phase as pending.
// Run appends the final statuses once the phase returns.
func (o *Orchestrator) publish(m *reporting.MasterReport, p Phase, write func(*reporting.MasterReport) error) error {
	n := len(m.Phases)
	defer func() { m.Phases = m.Phases[:n] }()
	m.Phases = append(m.Phases, reporting.PhaseStatus{Name: string(p), Status: reporting.StatusOK})
	for _, next := range PhaseOrder[slices.Index(PhaseOrder, p)+1:] {
		m.Phases = append(m.Phases, reporting.PhaseStatus{Name: string(next), Status: reporting.StatusPending})
	}
	m.Synthesize(o.now())
	return write(m)
}

func (o *Orchestrator) cover(m *reporting.MasterReport, configured, completed int) {
	m.Coverage.ConfiguredUnits += configured
	m.Coverage.CompletedUnits += completed
}

func (o *Orchestrator) recordAudit(ctx context.Context, r *audit.Report) {
	attrs := metric.WithAttributes(attribute.String("route", r.Route), attribute.String("viewport", r.Viewport))
	o.metrics.auditScore.Record(ctx, r.Score, attrs)
	for _, impact := range []a11y.Impact{a11y.ImpactCritical, a11y.ImpactSerious, a11y.ImpactModerate, a11y.ImpactMinor} {
		n := 0
		for _, is := range r.Issues {
			if is.Impact == impact {
				n++
			}
		}
		if n > 0 {
			o.metrics.issues.Add(ctx, int64(n), metric.WithAttributes(attribute.String("impact", string(impact))))
		}
	}
}

// withPage opens the unit's route in a fresh tab and closes it after fn.
// settle waits d so late console output and requests reach the harvester.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) withPage(ctx context.Context, u unit, acceptErrorStatus bool, fn func(browser.Page) error) error {
	url, err := o.cfg.Target.URLFor(u.route)
	if err != nil {
		return err
	}
	page, err := o.deps.Opener.Open(ctx, browser.OpenRequest{
		URL:               url,
		Viewport:          u.viewport,
		ReadySelector:     u.route.ReadySelector,
		Timeout:           o.cfg.Target.NavigationTimeout,
		ReadyTimeout:      o.cfg.Target.ReadinessTimeout,
		AcceptErrorStatus: acceptErrorStatus,
	})
	if err != nil {
		return err
	}
	defer page.Close(browser.Detach(ctx))
	return fn(page)
}
