// internal/reporting/master.go

// Package reporting aggregates every phase's output into a MasterReport,
// derives the health score and recommendation buckets, and renders the
// report formats into a Sink.
package reporting

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/audit"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/design"
	"github.com/xkilldash9x/uiprobe/internal/explore"
	"github.com/xkilldash9x/uiprobe/internal/scoring"
	"github.com/xkilldash9x/uiprobe/internal/sink"
	"github.com/xkilldash9x/uiprobe/internal/uicheck"
)

// Sink receives rendered artifacts.
type Sink = sink.Sink

// Phase statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	// StatusPending marks a phase that had not run when a report was written.
	StatusPending = "pending"
)

// PhaseStatus records how one pipeline phase ended.
type PhaseStatus struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// UnitError is a unit or reference source that could not be processed.
type UnitError struct {
	Phase string `json:"phase"`
	Unit  string `json:"unit"`
	Error string `json:"error"`
}

// Coverage compares what was configured with what completed.
type Coverage struct {
	ConfiguredUnits   int         `json:"configuredUnits"`
	CompletedUnits    int         `json:"completedUnits"`
	ConfiguredSources int         `json:"configuredSources"`
	CompletedSources  int         `json:"completedSources"`
	Errored           []UnitError `json:"errored,omitempty"`
	// Truncated lists audited units whose snapshot was partial.
	Truncated []string `json:"truncated,omitempty"`
}

// RuntimeReport is the console and network capture of one route.
type RuntimeReport struct {
	Route          string                  `json:"route"`
	URL            string                  `json:"url"`
	Status         int64                   `json:"status"`
	Console        []browser.ConsoleEntry  `json:"console"`
	FailedRequests []browser.FailedRequest `json:"failedRequests"`
}

// ErrorCount counts console errors, exceptions, failed requests and an
// error status of the main document.
func (r *RuntimeReport) ErrorCount() int {
	n := len(r.FailedRequests)
	for _, c := range r.Console {
		if c.IsError() {
			n++
		}
	}
	if r.Status >= 400 {
		n++
	}
	return n
}

// Recommendation is one actionable item.
type Recommendation struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// Recommendations buckets the items by urgency.
type Recommendations struct {
	Immediate []Recommendation `json:"immediate"`
	ShortTerm []Recommendation `json:"shortTerm"`
	LongTerm  []Recommendation `json:"longTerm"`
}

// Summary holds the run-wide counts.
type Summary struct {
	Units              int         `json:"units"`
	Issues             a11y.Counts `json:"issues"`
	AverageScore       float64     `json:"averageScore"`
	FixesApplied       int         `json:"fixesApplied"`
	RuntimeErrors      int         `json:"runtimeErrors"`
	CriticalDefects    int         `json:"criticalDefects"`
	OtherDefects       int         `json:"otherDefects"`
	UIFindings         int         `json:"uiFindings"`
	DesignSources      int         `json:"designSources"`
	AverageDesignScore float64     `json:"averageDesignScore"`
}

// MasterReport is the single document a run produces.
type MasterReport struct {
	RunID           string             `json:"runId"`
	Mode            string             `json:"mode"`
	Target          string             `json:"target"`
	StartedAt       time.Time          `json:"startedAt"`
	FinishedAt      time.Time          `json:"finishedAt"`
	Phases          []PhaseStatus      `json:"phases"`
	Coverage        Coverage           `json:"coverage"`
	Audits          []*audit.Report    `json:"audits"`
	Designs         []*design.Analysis `json:"designs"`
	Benchmark       *design.Benchmark  `json:"benchmark,omitempty"`
	UI              []*uicheck.Report  `json:"ui"`
	Runtime         []*RuntimeReport   `json:"runtime"`
	Navigation      []*explore.Report  `json:"navigation"`
	FixesApplied    int                `json:"fixesApplied"`
	HealthScore     float64            `json:"healthScore"`
	Recommendations Recommendations    `json:"recommendations"`
	Summary         Summary            `json:"summary"`
}

// NewMasterReport starts an empty report for a run.
func NewMasterReport(mode, target string, startedAt time.Time) *MasterReport {
	return &MasterReport{
		RunID:      uuid.New().String(),
		Mode:       mode,
		Target:     target,
		StartedAt:  startedAt,
		Audits:     []*audit.Report{},
		Designs:    []*design.Analysis{},
		UI:         []*uicheck.Report{},
		Runtime:    []*RuntimeReport{},
		Navigation: []*explore.Report{},
	}
}

// Errored records a unit that could not be processed.
func (m *MasterReport) Errored(phase, unit string, err error) {
	m.Coverage.Errored = append(m.Coverage.Errored, UnitError{Phase: phase, Unit: unit, Error: err.Error()})
}

// Defects flattens the navigation defects of every route.
func (m *MasterReport) Defects() []explore.Defect {
	var out []explore.Defect
	for _, r := range m.Navigation {
		out = append(out, r.Defects...)
	}
	return out
}

// HealthInputs are the counts the health score is computed from.
type HealthInputs struct {
	RuntimeErrors   int
	CriticalDefects int
	OtherDefects    int
	TotalIssues     int
	FixesApplied    int
}

// HealthScore folds the run's problems into one number in [0,100]. Fixed
// issues cost half of an unresolved one.
func HealthScore(in HealthInputs) float64 {
	fixed := in.FixesApplied
	if fixed > in.TotalIssues {
		fixed = in.TotalIssues
	}
	if fixed < 0 {
		fixed = 0
	}
	unresolved := in.TotalIssues - fixed
	score := 100.0 -
		2*float64(in.RuntimeErrors) -
		15*float64(in.CriticalDefects) -
		5*float64(in.OtherDefects) -
		float64(unresolved) -
		0.5*float64(fixed)
	return scoring.Clamp(score)
}

// Synthesize fills the summary, health score and recommendations from the
// collected phase outputs. It is safe to call more than once.
func (m *MasterReport) Synthesize(finishedAt time.Time) {
	m.FinishedAt = finishedAt

	var s Summary
	var issues []a11y.Issue
	var scoreSum float64
	m.Coverage.Truncated = nil
	for _, r := range m.Audits {
		if r.Truncated {
			m.Coverage.Truncated = append(m.Coverage.Truncated, r.Key())
		}
		s.Units++
		issues = append(issues, r.Issues...)
		scoreSum += r.Score
		s.FixesApplied += r.FixesApplied()
	}
	s.Issues = a11y.Count(issues)
	if s.Units > 0 {
		s.AverageScore = math.Round(scoreSum/float64(s.Units)*100) / 100
	}
	for _, r := range m.Runtime {
		s.RuntimeErrors += r.ErrorCount()
	}
	for _, d := range m.Defects() {
		if d.Critical() {
			s.CriticalDefects++
		} else {
			s.OtherDefects++
		}
	}
	for _, r := range m.UI {
		s.UIFindings += len(r.Findings)
	}
	var designSum float64
	for _, d := range m.Designs {
		s.DesignSources++
		designSum += d.Score
	}
	if s.DesignSources > 0 {
		s.AverageDesignScore = math.Round(designSum/float64(s.DesignSources)*100) / 100
		b := design.Summarize(m.Designs)
		m.Benchmark = &b
	}

	m.Summary = s
	m.FixesApplied = s.FixesApplied
	m.HealthScore = HealthScore(HealthInputs{
		RuntimeErrors:   s.RuntimeErrors,
		CriticalDefects: s.CriticalDefects,
		OtherDefects:    s.OtherDefects,
		TotalIssues:     s.Issues.Total,
		FixesApplied:    s.FixesApplied,
	})
	m.Recommendations = Recommend(m)
}
