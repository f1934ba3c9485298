// internal/audit/report.go
package audit

import (
	"time"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
)

// Report is the accessibility audit of one route at one viewport.
type Report struct {
	Timestamp   time.Time              `json:"timestamp"`
	Route       string                 `json:"route"`
	Viewport    string                 `json:"viewport"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title,omitempty"`
	Static      bool                   `json:"static,omitempty"`
	Score       float64                `json:"score"`
	Grade       string                 `json:"grade"`
	LevelScores map[a11y.Level]float64 `json:"levelScores"`
	Issues      []a11y.Issue           `json:"issues"`
	Summary     a11y.Counts            `json:"summary"`
	ByCategory  map[a11y.Category]int  `json:"byCategory"`
	Contrast    ContrastReport         `json:"contrast"`
	Keyboard    KeyboardReport         `json:"keyboard"`
	Screen      ScreenReaderReport     `json:"screenReader"`
	Remediation *RemediationReport     `json:"remediation,omitempty"`
	// DetectorErrors lists detectors that failed on this unit.
	DetectorErrors []string `json:"detectorErrors,omitempty"`
	// Truncated marks a partial snapshot: only the first Elements of
	// DocumentElements were audited, and rules that report something as
	// absent were skipped.
	Truncated        bool `json:"truncated,omitempty"`
	Elements         int  `json:"elements"`
	DocumentElements int  `json:"documentElements,omitempty"`
}

// ContrastReport details the colour-contrast evaluation.
type ContrastReport struct {
	Checked    int               `json:"checked"`
	FailingAA  int               `json:"failingAA"`
	FailingAAA int               `json:"failingAAA"`
	Failures   []ContrastFailure `json:"failures,omitempty"`
}

// ContrastFailure is one text node below the AA or AAA threshold.
type ContrastFailure struct {
	Selector    string  `json:"selector"`
	Foreground  string  `json:"foreground"`
	Background  string  `json:"background"`
	Ratio       float64 `json:"ratio"`
	RequiredAA  float64 `json:"requiredAA"`
	RequiredAAA float64 `json:"requiredAAA"`
	Large       bool    `json:"large"`
}

// KeyboardReport summarizes keyboard operability.
type KeyboardReport struct {
	Interactive      int      `json:"interactive"`
	Focusable        int      `json:"focusable"`
	Unreachable      int      `json:"unreachable"`
	MissingIndicator int      `json:"missingIndicator"`
	SkipLink         bool     `json:"skipLink"`
	FocusOrder       []string `json:"focusOrder,omitempty"`
}

// ScreenReaderReport summarizes what assistive technology announces.
type ScreenReaderReport struct {
	Lang              string         `json:"lang,omitempty"`
	Title             string         `json:"title,omitempty"`
	Landmarks         map[string]int `json:"landmarks"`
	Headings          []Heading      `json:"headings,omitempty"`
	ImagesWithoutAlt  int            `json:"imagesWithoutAlt"`
	UnlabeledControls int            `json:"unlabeledControls"`
	AriaIssues        int            `json:"ariaIssues"`
}

// Heading is one entry of the document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// RemediationReport records what the remediation engine did on the unit.
type RemediationReport struct {
	Attempted int      `json:"attempted"`
	Applied   int      `json:"applied"`
	Failed    []string `json:"failed,omitempty"`
	// Score is the overall score after re-auditing the remediated page.
	Score   *float64     `json:"score,omitempty"`
	Summary *a11y.Counts `json:"summary,omitempty"`
}

// FixesApplied returns the number of successfully applied fixes.
func (r *Report) FixesApplied() int {
	if r.Remediation == nil {
		return 0
	}
	return r.Remediation.Applied
}

// Key identifies the unit.
func (r *Report) Key() string {
	return r.Route + "-" + r.Viewport
}
