// File: internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/design"
	"github.com/xkilldash9x/uiprobe/internal/dom"
	"github.com/xkilldash9x/uiprobe/internal/explore"
	"github.com/xkilldash9x/uiprobe/internal/mocks"
	"github.com/xkilldash9x/uiprobe/internal/observability"
	"github.com/xkilldash9x/uiprobe/internal/remediation"
	"github.com/xkilldash9x/uiprobe/internal/reporting"
	"github.com/xkilldash9x/uiprobe/internal/sink"
	"github.com/xkilldash9x/uiprobe/internal/uicheck"
)

const sitePage = `<!DOCTYPE html>
<html lang="en">
<head><title>Shop</title></head>
<body>
  <a href="#main">Skip to main content</a>
  <header><nav><a href="/">Home</a> <a href="/pricing">Pricing</a></nav></header>
  <main id="main">
    <h1>Welcome</h1>
    <h2>Deals</h2>
    <p>Plain readable text.</p>
  </main>
  <footer><p>Contact us</p></footer>
</body>
</html>`

const referencePage = `<html><head><title>Ref</title></head><body>
<main style="display:grid; max-width:1200px">
  <h1 style="font-family: 'Inter', sans-serif; color:#111111">Title</h1>
  <div class="card" style="border-radius:12px; background-color:#f5f5f5; padding:24px">Card</div>
  <button style="background-color:#0055ff; color:#ffffff">Buy</button>
</main>
</body></html>`

var (
	references = []design.Reference{
		{Name: "Alpha", URL: "https://alpha.test", Priority: design.PriorityHigh},
		{Name: "Slow", URL: "https://slow.test", Priority: design.PriorityHigh},
		{Name: "Gamma", URL: "https://gamma.test", Priority: design.PriorityHigh},
	}
	start = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
)

func pageFor(t *testing.T, html, url string) *mocks.FakePage {
	t.Helper()
	snap, err := dom.FromHTML(strings.NewReader(html), url)
	require.NoError(t, err)
	return mocks.NewFakePage(snap)
}

// statusChecker answers link checks from a table; unknown links are fine.
type statusChecker struct {
	mu       sync.Mutex
	statuses map[string]int
	checked  []string
}

func (c *statusChecker) Check(_ context.Context, url string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = append(c.checked, url)
	if s, ok := c.statuses[url]; ok {
		return s, nil
	}
	return 200, nil
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Target.BaseURL = "https://shop.test"
	cfg.Target.Routes = []config.Route{{Name: "home", Path: "/"}, {Name: "about", Path: "/about"}}
	cfg.Target.Viewports = []config.Viewport{
		{Name: "desktop", Width: 1280, Height: 800},
		{Name: "mobile", Width: 375, Height: 667, Mobile: true},
	}
	cfg.References.Timeout = time.Second
	cfg.Explore.RateLimit = 1000
	cfg.Engine.Concurrency = 2
	cfg.Target.SettleTime = 0
	return cfg
}

type harness struct {
	opener   *mocks.MockOpener
	out      *sink.Memory
	recorder *tracetest.SpanRecorder
	metrics  *sdkmetric.ManualReader
	orch     *Orchestrator
}

func newHarness(t *testing.T, cfg *config.Config, refs []design.Reference) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	h := &harness{
		opener:   new(mocks.MockOpener),
		out:      sink.NewMemory(),
		recorder: tracetest.NewSpanRecorder(),
		metrics:  sdkmetric.NewManualReader(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.metrics))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	telemetry := observability.NewTelemetry(tp, mp)
	telemetry.Metrics = h.metrics

	publisher, err := reporting.NewPublisher(logger, h.out, cfg.Output.Formats, "test")
	require.NoError(t, err)

	h.orch, err = New(cfg, logger, Deps{
		Opener:     h.opener,
		Auditor:    audit.NewAuditor(logger, a11y.NewBattery(logger), remediation.NewEngine(logger), cfg.Accessibility),
		Extractor:  design.NewExtractor(logger, h.opener, h.out, cfg.References.Timeout),
		Checker:    uicheck.NewChecker(logger, h.out),
		Explorer:   explore.NewExplorer(logger, &statusChecker{}, cfg.Explore),
		Publisher:  publisher,
		References: refs,
		Telemetry:  telemetry,
	})
	require.NoError(t, err)
	h.orch.now = func() time.Time { return start }
	return h
}

func (h *harness) serveSite(t *testing.T) {
	for _, url := range []string{"https://shop.test/", "https://shop.test/about"} {
		h.opener.On("Open", mock.Anything, mocks.URLIs(url)).Return(pageFor(t, sitePage, url), nil)
	}
}

func (h *harness) spanNames() []string {
	var names []string
	for _, s := range h.recorder.Ended() {
		names = append(names, s.Name())
	}
	return names
}

// point returns the data point of a metric with exactly the given attributes.
func (h *harness) point(t *testing.T, name string, attrs ...attribute.KeyValue) observability.Point {
	t.Helper()
	points, err := observability.CollectPoints(context.Background(), h.metrics)
	require.NoError(t, err)
	want := attribute.NewSet(attrs...)
	for _, p := range points {
		if p.Metric == name && p.Attributes.Equals(&want) {
			return p
		}
	}
	require.Failf(t, "metric not recorded", "%s %v", name, attrs)
	return observability.Point{}
}

func statuses(m *reporting.MasterReport) map[string]string {
	out := map[string]string{}
	for _, p := range m.Phases {
		out[p.Name] = p.Status
	}
	return out
}

func TestNewRejectsNilDependencies(t *testing.T) {
	_, err := New(testConfig(), zaptest.NewLogger(t), Deps{})
	assert.Error(t, err)
}

// A clean site with one slow reference source: the run completes every
// phase, the health score is perfect and nothing is urgent.
func TestRun_FullPipelineCleanSite(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	h := newHarness(t, cfg, references)
	h.serveSite(t)
	for _, r := range []design.Reference{references[0], references[2]} {
		h.opener.On("Open", mock.Anything, mocks.URLIs(r.URL)).Return(pageFor(t, referencePage, r.URL), nil)
	}
	h.opener.On("Open", mock.Anything, mocks.URLIs("https://slow.test")).Return(nil, context.DeadlineExceeded)

	m, err := h.orch.Run(context.Background(), ModeFull)
	require.NoError(t, err)

	for _, p := range PhaseOrder {
		assert.Equal(t, reporting.StatusOK, statuses(m)[string(p)], "phase %s", p)
	}

	assert.Equal(t, 100.0, m.HealthScore)
	assert.Empty(t, m.Recommendations.Immediate)
	assert.Equal(t, 0, m.Summary.Issues.Total)

	require.Len(t, m.Designs, len(references)-1)
	assert.Equal(t, "Alpha", m.Designs[0].Name)
	assert.Equal(t, "Gamma", m.Designs[1].Name)
	assert.Equal(t, 3, m.Coverage.ConfiguredSources)
	assert.Equal(t, 2, m.Coverage.CompletedSources)
	require.Len(t, m.Coverage.Errored, 1)
	assert.Equal(t, "references", m.Coverage.Errored[0].Phase)
	assert.Equal(t, "Slow", m.Coverage.Errored[0].Unit)
	assert.Contains(t, m.Coverage.Errored[0].Error, "unreachable")

	var keys []string
	for _, r := range m.Audits {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []string{"home-desktop", "home-mobile", "about-desktop", "about-mobile"}, keys, "reports follow configuration order")
	assert.Len(t, m.UI, 4)
	assert.Len(t, m.Runtime, 2)
	assert.Len(t, m.Navigation, 2)

	paths := h.out.Paths()
	for _, want := range []string{
		"IMPROVEMENT_PLAN.md", "REPORT.md", "accessibility.sarif", "junit.xml", "master-report.json", "report.html",
		"accessibility/home-desktop.json", "accessibility/about-mobile.json",
		"screenshots/home-mobile.png", "design/alpha.json", "design/gamma.png",
	} {
		assert.Contains(t, paths, want)
	}

	data, ok := h.out.Get("master-report.json")
	require.True(t, ok)
	written, err := reporting.DecodeMasterReport(data)
	require.NoError(t, err)
	require.Len(t, written.Phases, len(PhaseOrder), "the written report lists every phase")
	assert.Equal(t, reporting.StatusOK, statuses(written)["accessibility"])
	assert.Equal(t, reporting.StatusOK, statuses(written)["report"])
	assert.Equal(t, reporting.StatusPending, statuses(written)["plan"])
	require.Len(t, m.Phases, len(PhaseOrder))
	assert.Equal(t, reporting.StatusOK, statuses(m)["plan"])

	phaseOutcome := func(phase, outcome string) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("phase", phase), attribute.String("outcome", outcome)}
	}
	assert.Equal(t, 4.0, h.point(t, "uiprobe.units", phaseOutcome("accessibility", "ok")...).Value)
	assert.Equal(t, 2.0, h.point(t, "uiprobe.units", phaseOutcome("references", "ok")...).Value)
	assert.Equal(t, 1.0, h.point(t, "uiprobe.units", phaseOutcome("references", "error")...).Value)
	score := h.point(t, "uiprobe.audit.score", attribute.String("route", "home"), attribute.String("viewport", "mobile"))
	assert.Equal(t, uint64(1), score.Count)
	assert.Equal(t, 100.0, score.Value)
	report := h.point(t, "uiprobe.phase.duration", attribute.String("phase", "report"), attribute.String("status", "ok"))
	assert.Equal(t, uint64(1), report.Count)
	assert.Equal(t, 100.0, h.point(t, "uiprobe.health").Value)

	names := h.spanNames()
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "phase.report")
	assert.Contains(t, names, "unit.accessibility")
	h.opener.AssertExpectations(t)
}

func TestRun_QuickModeSkipsPhases(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, testConfig(), references)
	h.serveSite(t)

	m, err := h.orch.Run(context.Background(), ModeQuick)
	require.NoError(t, err)

	st := statuses(m)
	assert.Equal(t, reporting.StatusSkipped, st["references"])
	assert.Equal(t, reporting.StatusSkipped, st["errors"])
	assert.Equal(t, reporting.StatusSkipped, st["explore"])
	assert.Equal(t, reporting.StatusSkipped, st["plan"])
	assert.Equal(t, reporting.StatusOK, st["ui"])
	assert.Equal(t, reporting.StatusOK, st["accessibility"])
	assert.Equal(t, reporting.StatusOK, st["report"])

	assert.Empty(t, m.Designs)
	assert.Empty(t, m.Runtime)
	assert.Len(t, m.Audits, 4)
	_, planned := h.out.Get("IMPROVEMENT_PLAN.md")
	assert.False(t, planned)
	h.opener.AssertNotCalled(t, "Open", mock.Anything, mocks.URLIs("https://alpha.test"))
}

func TestRun_ConfigToggleDisablesPhase(t *testing.T) {
	cfg := testConfig()
	cfg.Phases.UI = false
	h := newHarness(t, cfg, nil)
	h.serveSite(t)

	m, err := h.orch.Run(context.Background(), ModeQuick)
	require.NoError(t, err)
	assert.Equal(t, reporting.StatusSkipped, statuses(m)["ui"])
	assert.Empty(t, m.UI)
	assert.Len(t, m.Audits, 4)
}

func TestRun_UnitFailureIsIsolated(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, testConfig(), nil)
	h.opener.On("Open", mock.Anything, mocks.URLIs("https://shop.test/")).Return(pageFor(t, sitePage, "https://shop.test/"), nil)
	h.opener.On("Open", mock.Anything, mocks.URLIs("https://shop.test/about")).
		Return(nil, &browser.NavigationError{URL: "https://shop.test/about", Status: 404})

	m, err := h.orch.Run(context.Background(), ModeAccessibility)
	require.NoError(t, err)

	assert.Equal(t, reporting.StatusOK, statuses(m)["accessibility"])
	assert.Equal(t, reporting.StatusOK, statuses(m)["report"])
	require.Len(t, m.Audits, 2)
	assert.Equal(t, "home-desktop", m.Audits[0].Key())

	require.Len(t, m.Coverage.Errored, 2)
	assert.Equal(t, "about@desktop", m.Coverage.Errored[0].Unit)
	assert.Equal(t, "about@mobile", m.Coverage.Errored[1].Unit)
	assert.Contains(t, m.Coverage.Errored[0].Error, "HTTP 404")
	assert.Equal(t, 4, m.Coverage.ConfiguredUnits)
	assert.Equal(t, 2, m.Coverage.CompletedUnits)

	outcome := func(o string) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("phase", "accessibility"), attribute.String("outcome", o)}
	}
	assert.Equal(t, 2.0, h.point(t, "uiprobe.units", outcome("ok")...).Value)
	assert.Equal(t, 2.0, h.point(t, "uiprobe.units", outcome("error")...).Value)
}

type panickingOpener struct{}

func (panickingOpener) Open(context.Context, browser.OpenRequest) (browser.Page, error) {
	panic("tab crashed")
}

func TestRun_UnitPanicIsRecovered(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	h.orch.deps.Opener = panickingOpener{}

	m, err := h.orch.Run(context.Background(), ModeAccessibility)
	require.NoError(t, err)

	assert.Equal(t, reporting.StatusOK, statuses(m)["accessibility"])
	require.Len(t, m.Coverage.Errored, 4)
	assert.Contains(t, m.Coverage.Errored[0].Error, "panicked: tab crashed")
	assert.Empty(t, m.Audits)
}

func TestRunPhase_UnknownPhaseFails(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	m := reporting.NewMasterReport("full", "https://shop.test", start)

	st := h.orch.runPhase(context.Background(), Phase("bogus"), m)
	assert.Equal(t, reporting.StatusFailed, st.Status)
	assert.Contains(t, st.Error, `unknown phase "bogus"`)
}

func TestRun_RuntimeErrorsAcceptErrorStatus(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	accepting := mock.MatchedBy(func(req browser.OpenRequest) bool { return req.AcceptErrorStatus })
	strict := mock.MatchedBy(func(req browser.OpenRequest) bool { return !req.AcceptErrorStatus })

	broken := pageFor(t, sitePage, "https://shop.test/")
	broken.StatusCode = 500
	broken.ConsoleLog = []browser.ConsoleEntry{{Level: browser.LevelError, Source: browser.SourceException, Text: "boom"}}
	h.opener.On("Open", mock.Anything, accepting).Return(broken, nil)
	h.opener.On("Open", mock.Anything, strict).Return(nil, &browser.NavigationError{URL: "https://shop.test/", Status: 500})

	m, err := h.orch.Run(context.Background(), ModeErrors)
	require.NoError(t, err)

	require.Len(t, m.Runtime, 2, "errors phase visits each route once")
	assert.Equal(t, 2, m.Runtime[0].ErrorCount())
	assert.Empty(t, m.Navigation)
	assert.Len(t, m.Coverage.Errored, 2)
	assert.Equal(t, 4, m.Summary.RuntimeErrors)
	assert.Equal(t, 92.0, m.HealthScore)
	require.NotEmpty(t, m.Recommendations.Immediate)
	assert.Equal(t, reporting.SourceRuntime, m.Recommendations.Immediate[0].Source)
}

func TestRun_RuntimeErrorsWaitForLateConsole(t *testing.T) {
	cfg := testConfig()
	cfg.Target.Routes = cfg.Target.Routes[:1]
	cfg.Target.SettleTime = 300 * time.Millisecond
	h := newHarness(t, cfg, nil)

	page := pageFor(t, sitePage, "https://shop.test/")
	page.LateConsole = []browser.ConsoleEntry{{Level: browser.LevelError, Source: browser.SourceConsole, Text: "late"}}
	page.LateAfter = 20 * time.Millisecond
	h.opener.On("Open", mock.Anything, mocks.URLIs("https://shop.test/")).
		Run(func(mock.Arguments) { page.MarkOpened() }).
		Return(page, nil)

	m, err := h.orch.Run(context.Background(), ModeErrors)
	require.NoError(t, err)

	require.Len(t, m.Runtime, 1)
	require.Len(t, m.Runtime[0].Console, 1)
	assert.Equal(t, "late", m.Runtime[0].Console[0].Text)
}

func TestSettle(t *testing.T) {
	assert.NoError(t, settle(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, settle(ctx, time.Hour), context.Canceled)
}

func TestRun_CanceledContextSkipsEverything(t *testing.T) {
	h := newHarness(t, testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := h.orch.Run(ctx, ModeFull)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, m.Phases, len(PhaseOrder))
	for _, p := range m.Phases {
		assert.Equal(t, reporting.StatusSkipped, p.Status)
	}
	h.opener.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}
