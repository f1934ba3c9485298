// File: internal/a11y/landmarks.go
package a11y

import (
	"fmt"

	"github.com/xkilldash9x/uiprobe/internal/dom"
)

// Sectioning elements that scope header/footer away from banner/contentinfo.
var sectioning = []string{"article", "aside", "main", "nav", "section"}

// LandmarkDetector checks that the page exposes the core landmark regions.
type LandmarkDetector struct{}

func (LandmarkDetector) Name() string { return "landmarks" }

func (LandmarkDetector) Detect(snap *dom.Snapshot) []Issue {
	var mains, navs, banners, footers []*dom.Element
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if !e.Visible {
			continue
		}
		role := e.Role()
		switch {
		case e.Tag == "main" || role == "main":
			mains = append(mains, e)
		case e.Tag == "nav" || role == "navigation":
			navs = append(navs, e)
		case role == "banner" || (e.Tag == "header" && role == "" && snap.ClosestTag(e, sectioning...) == nil):
			banners = append(banners, e)
		case role == "contentinfo" || (e.Tag == "footer" && role == "" && snap.ClosestTag(e, sectioning...) == nil):
			footers = append(footers, e)
		}
	}

	var issues []Issue
	missing := func(id, what, fix string) {
		// Landmarks past the collected prefix are unknown.
		if snap.Truncated {
			return
		}
		issues = append(issues, landmarkIssue(id, fmt.Sprintf("Page has no %s landmark.", what), bodyTarget(snap), fix))
	}
	if len(mains) == 0 {
		missing("landmark-main-missing", "main", "Wrap the primary content in a single <main> element.")
	}
	if len(mains) > 1 {
		issues = append(issues, landmarkIssue("landmark-main-duplicate",
			fmt.Sprintf("Page has %d main landmarks; only one is allowed.", len(mains)),
			targetOf(mains[1]), "Keep a single <main> and convert the others to <section>."))
	}
	if len(navs) == 0 {
		missing("landmark-navigation-missing", "navigation", "Wrap the primary navigation links in a <nav> element.")
	}
	if len(banners) == 0 {
		missing("landmark-banner-missing", "banner", "Put the site header in a top-level <header> element.")
	}
	if len(footers) == 0 {
		missing("landmark-contentinfo-missing", "contentinfo", "Put the site footer in a top-level <footer> element.")
	}
	return issues
}

func landmarkIssue(id, description string, target Target, recommendation string) Issue {
	return Issue{
		ID:             id,
		Category:       CategoryLandmarks,
		Impact:         ImpactModerate,
		Level:          LevelAA,
		Criterion:      criterionInfoRelationships,
		Description:    description,
		Target:         target,
		Recommendation: recommendation,
	}
}
