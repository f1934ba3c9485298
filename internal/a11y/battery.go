// File: internal/a11y/battery.go
package a11y

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

// Detector inspects a snapshot for one family of defects. Implementations
// must be pure: the same snapshot always yields the same issues.
type Detector interface {
	Name() string
	Detect(snap *dom.Snapshot) []Issue
}

// DetectorError records a detector that failed while scanning a snapshot.
type DetectorError struct {
	Detector string
	Err      error
	Stack    string
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %s failed: %v", e.Detector, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// DefaultDetectors returns the full battery in reporting order.
func DefaultDetectors() []Detector {
	return []Detector{
		AltTextDetector{},
		HeadingDetector{},
		FormLabelDetector{},
		KeyboardDetector{},
		ContrastDetector{},
		ARIADetector{},
		LandmarkDetector{},
		SemanticDetector{},
	}
}

// Battery runs a set of independent detectors over one snapshot.
type Battery struct {
	detectors []Detector
	logger    *zap.Logger
}

// NewBattery creates a battery. With no detectors given it uses DefaultDetectors.
func NewBattery(logger *zap.Logger, detectors ...Detector) *Battery {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &Battery{detectors: detectors, logger: logger.Named("a11y")}
}

// Run executes every detector. A detector that panics is reported as a
// *DetectorError and the remaining detectors still run.
func (b *Battery) Run(snap *dom.Snapshot) ([]Issue, []error) {
	var (
		issues []Issue
		errs   []error
	)
	for _, d := range b.detectors {
		found, err := b.runOne(d, snap)
		if err != nil {
			b.logger.Error("Detector failed.", zap.String("detector", d.Name()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		issues = append(issues, found...)
	}
	b.logger.Debug("Detector battery finished.",
		zap.String("url", snap.URL),
		zap.Int("issues", len(issues)),
		zap.Int("failed_detectors", len(errs)))
	return issues, errs
}

func (b *Battery) runOne(d Detector, snap *dom.Snapshot) (issues []Issue, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetectorError{Detector: d.Name(), Err: fmt.Errorf("panic: %v", r), Stack: string(debug.Stack())}
			issues = nil
		}
	}()
	return d.Detect(snap), nil
}
