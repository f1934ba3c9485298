// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/design"
	"github.com/xkilldash9x/uiprobe/internal/explore"
	"github.com/xkilldash9x/uiprobe/internal/observability"
	"github.com/xkilldash9x/uiprobe/internal/orchestrator"
	"github.com/xkilldash9x/uiprobe/internal/remediation"
	"github.com/xkilldash9x/uiprobe/internal/reporting"
	"github.com/xkilldash9x/uiprobe/internal/scoring"
	"github.com/xkilldash9x/uiprobe/internal/sink"
	"github.com/xkilldash9x/uiprobe/internal/uicheck"
)

const shutdownTimeout = 15 * time.Second

// runComponents holds everything a run owns and must release.
type runComponents struct {
	Orchestrator *orchestrator.Orchestrator
	Manager      *browser.Manager
	Sink         *sink.FileSink
	shutdownFns  []func(context.Context)
}

// Shutdown releases the components in reverse order of creation.
func (c *runComponents) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(c.shutdownFns) - 1; i >= 0; i-- {
		c.shutdownFns[i](ctx)
	}
}

func runMode(ctx context.Context, cmd *cobra.Command, cfg *config.Config, mode orchestrator.Mode) error {
	logger := observability.GetLogger()

	components, err := initializeRunComponents(ctx, cfg, logger)
	if components != nil {
		defer components.Shutdown()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize run components: %w", err)
	}

	report, runErr := components.Orchestrator.Run(ctx, mode)
	if report != nil {
		printSummary(cmd.OutOrStdout(), report, components.Sink.Root())
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Run aborted gracefully", zap.String("run_id", report.RunID))
		}
		return runErr
	}
	return nil
}

// initializeRunComponents wires the browser, the phase components and the
// orchestrator. On error the returned components hold whatever was started
// so the caller can still shut it down.
func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runComponents, error) {
	c := &runComponents{}

	out, err := sink.NewOSFileSink(cfg.Output.Dir)
	if err != nil {
		return c, err
	}
	c.Sink = out

	catalog, err := design.LoadCatalog(afero.NewOsFs(), cfg.References.CatalogFile)
	if err != nil {
		return c, err
	}
	refs := design.Select(catalog, cfg.References.Priorities)

	tp := observability.NewTracerProvider(logger, cfg.Logger.ServiceName)
	c.shutdownFns = append(c.shutdownFns, func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down tracer provider.", zap.Error(err))
		}
	})

	mp, reader := observability.NewMeterProvider(cfg.Logger.ServiceName)
	c.shutdownFns = append(c.shutdownFns, func(ctx context.Context) {
		if err := mp.Shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down meter provider.", zap.Error(err))
		}
	})
	telemetry := observability.NewTelemetry(tp, mp)
	telemetry.Metrics = reader

	manager, err := browser.NewManager(ctx, logger, cfg.Browser)
	if err != nil {
		return c, err
	}
	c.Manager = manager
	c.shutdownFns = append(c.shutdownFns, func(ctx context.Context) {
		if err := manager.Shutdown(ctx); err != nil {
			logger.Warn("Browser manager shutdown failed.", zap.Error(err))
		}
	})

	publisher, err := reporting.NewPublisher(logger, out, cfg.Output.Formats, Version)
	if err != nil {
		return c, err
	}
	checker := explore.NewHTTPLinkChecker(explore.ClientConfig{
		RequestTimeout:  cfg.Explore.RequestTimeout,
		IgnoreTLSErrors: cfg.Browser.IgnoreTLSErrors,
		Logger:          logger,
	})

	var remediator *remediation.Engine
	if cfg.Accessibility.Remediate {
		remediator = remediation.NewEngine(logger)
	}

	orch, err := orchestrator.New(cfg, logger, orchestrator.Deps{
		Opener:     manager,
		Auditor:    audit.NewAuditor(logger, a11y.NewBattery(logger), remediator, cfg.Accessibility),
		Extractor:  design.NewExtractor(logger, manager, out, cfg.References.Timeout),
		Checker:    uicheck.NewChecker(logger, out),
		Explorer:   explore.NewExplorer(logger, checker, cfg.Explore),
		Publisher:  publisher,
		References: refs,
		Telemetry:  telemetry,
	})
	if err != nil {
		return c, err
	}
	c.Orchestrator = orch
	return c, nil
}

// printSummary writes the console digest of a finished run.
func printSummary(w io.Writer, m *reporting.MasterReport, dir string) {
	s := m.Summary
	fmt.Fprintf(w, "\nRun %s (%s) against %s\n", m.RunID, m.Mode, m.Target)
	for _, p := range m.Phases {
		line := fmt.Sprintf("  %-14s %s", p.Name, p.Status)
		if p.Error != "" {
			line += ": " + p.Error
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Health score:   %.1f / 100 (grade %s)\n", m.HealthScore, scoring.Grade(m.HealthScore))
	fmt.Fprintf(w, "Units:          %d of %d completed\n", m.Coverage.CompletedUnits, m.Coverage.ConfiguredUnits)
	if m.Coverage.ConfiguredSources > 0 {
		fmt.Fprintf(w, "References:     %d of %d analyzed\n", m.Coverage.CompletedSources, m.Coverage.ConfiguredSources)
	}
	fmt.Fprintf(w, "Issues:         %d (critical %d, serious %d, moderate %d, minor %d), %d fixed\n",
		s.Issues.Total, s.Issues.Critical, s.Issues.Serious, s.Issues.Moderate, s.Issues.Minor, s.FixesApplied)
	fmt.Fprintf(w, "Runtime errors: %d\n", s.RuntimeErrors)
	fmt.Fprintf(w, "Defects:        %d critical, %d other\n", s.CriticalDefects, s.OtherDefects)
	fmt.Fprintf(w, "UI findings:    %d\n", s.UIFindings)
	fmt.Fprintf(w, "Immediate:      %d action(s)\n", len(m.Recommendations.Immediate))
	for _, r := range m.Recommendations.Immediate {
		fmt.Fprintf(w, "  - %s\n", r.Title)
	}
	if dir != "" {
		fmt.Fprintf(w, "Reports written to %s\n", dir)
	}
}
