// internal/reporting/reporter.go
package reporting

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/sink"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Renderer turns a MasterReport into one artifact.
type Renderer interface {
	// Format is the name used in output.formats.
	Format() string
	// Path is the artifact path inside the sink.
	Path() string
	Render(m *MasterReport) ([]byte, error)
}

// New creates the renderer for a configured format.
func New(logger *zap.Logger, format, version string) (Renderer, error) {
	switch format {
	case "json":
		return JSONRenderer{}, nil
	case "markdown":
		return MarkdownRenderer{}, nil
	case "html":
		return NewHTMLRenderer(), nil
	case "sarif":
		return NewSARIFRenderer(logger, version), nil
	case "junit":
		return JUnitRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// JSONRenderer writes the full MasterReport.
type JSONRenderer struct{}

func (JSONRenderer) Format() string { return "json" }
func (JSONRenderer) Path() string   { return "master-report.json" }

func (JSONRenderer) Render(m *MasterReport) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// DecodeMasterReport parses a document produced by JSONRenderer.
func DecodeMasterReport(data []byte) (*MasterReport, error) {
	var m MasterReport
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode master report: %w", err)
	}
	return &m, nil
}

// AuditReportPath is where a unit's audit report is written.
func AuditReportPath(r *audit.Report) string {
	return "accessibility/" + sink.SafeName(r.Route) + "-" + sink.SafeName(r.Viewport) + ".json"
}

// Publisher renders the configured formats into a sink.
type Publisher struct {
	logger    *zap.Logger
	out       Sink
	renderers []Renderer
}

// NewPublisher validates formats and prepares their renderers.
func NewPublisher(logger *zap.Logger, out Sink, formats []string, version string) (*Publisher, error) {
	p := &Publisher{logger: logger.Named("reporting"), out: out}
	for _, f := range formats {
		r, err := New(p.logger, f, version)
		if err != nil {
			return nil, err
		}
		p.renderers = append(p.renderers, r)
	}
	return p, nil
}

// WriteAudit persists one unit's audit report.
func (p *Publisher) WriteAudit(r *audit.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode audit report %s: %w", r.Key(), err)
	}
	return p.out.Write(AuditReportPath(r), data)
}

// Publish writes every configured format. A failing format does not stop
// the others; all failures are returned joined.
func (p *Publisher) Publish(m *MasterReport) error {
	var errs []error
	for _, r := range p.renderers {
		if err := p.write(r, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishPlan writes the improvement plan.
func (p *Publisher) PublishPlan(m *MasterReport) error {
	return p.write(PlanRenderer{}, m)
}

func (p *Publisher) write(r Renderer, m *MasterReport) error {
	start := time.Now()
	data, err := r.Render(m)
	if err != nil {
		p.logger.Error("Failed to render report.", zap.String("format", r.Format()), zap.Error(err))
		return fmt.Errorf("render %s: %w", r.Format(), err)
	}
	if err := p.out.Write(r.Path(), data); err != nil {
		p.logger.Error("Failed to write report.", zap.String("path", r.Path()), zap.Error(err))
		return fmt.Errorf("write %s: %w", r.Path(), err)
	}
	p.logger.Info("Report written.",
		zap.String("format", r.Format()),
		zap.String("path", r.Path()),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
