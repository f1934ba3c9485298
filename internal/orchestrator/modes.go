// File: internal/orchestrator/modes.go
package orchestrator

import "github.com/xkilldash9x/uiprobe/internal/config"

// Mode selects which phases a run executes.
type Mode string

const (
	ModeFull          Mode = "full"
	ModeQuick         Mode = "quick"
	ModeErrors        Mode = "errors"
	ModeAccessibility Mode = "accessibility"
)

// Modes lists the accepted modes in help order.
var Modes = []Mode{ModeFull, ModeQuick, ModeErrors, ModeAccessibility}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	for _, m := range Modes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Phase names one pipeline step.
type Phase string

const (
	PhaseReferences    Phase = "references"
	PhaseUI            Phase = "ui"
	PhaseErrors        Phase = "errors"
	PhaseExplore       Phase = "explore"
	PhaseAccessibility Phase = "accessibility"
	PhaseReport        Phase = "report"
	PhasePlan          Phase = "plan"
)

// PhaseOrder is the fixed execution order.
var PhaseOrder = []Phase{
	PhaseReferences, PhaseUI, PhaseErrors, PhaseExplore,
	PhaseAccessibility, PhaseReport, PhasePlan,
}

var modePhases = map[Mode][]Phase{
	ModeFull:          PhaseOrder,
	ModeQuick:         {PhaseUI, PhaseAccessibility, PhaseReport},
	ModeErrors:        {PhaseErrors, PhaseExplore, PhaseReport},
	ModeAccessibility: {PhaseAccessibility, PhaseReport, PhasePlan},
}

// Enabled reports whether the mode includes the phase and the config toggle
// allows it.
func (m Mode) Enabled(p Phase, toggles config.PhasesConfig) bool {
	included := false
	for _, q := range modePhases[m] {
		if q == p {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	switch p {
	case PhaseReferences:
		return toggles.References
	case PhaseUI:
		return toggles.UI
	case PhaseErrors:
		return toggles.Errors
	case PhaseExplore:
		return toggles.Explore
	case PhaseAccessibility:
		return toggles.Accessibility
	case PhaseReport:
		return toggles.Report
	case PhasePlan:
		return toggles.Plan
	}
	return false
}
