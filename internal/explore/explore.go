// internal/explore/explore.go

// Package explore drives the exploratory navigation phase: scripted
// interactions per route and a rate-limited check of same-origin links.
package explore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/dom"
)

// Defect kinds.
const (
	KindInteractionFailed = "interaction-failed"
	KindServerError       = "server-error"
	KindBrokenLink        = "broken-link"
	KindUnreachableLink   = "unreachable-link"
)

// Defect severities.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
)

// Defect is a navigation problem found while exploring.
type Defect struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Route    string `json:"route"`
	URL      string `json:"url"`
	Selector string `json:"selector,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail"`
}

// Critical reports whether the defect forces immediate attention.
func (d Defect) Critical() bool { return d.Severity == SeverityCritical }

// Report is the exploration result for one route.
type Report struct {
	Timestamp    time.Time `json:"timestamp"`
	Route        string    `json:"route"`
	URL          string    `json:"url"`
	Interactions int       `json:"interactions"`
	LinksFound   int       `json:"linksFound"`
	LinksChecked int       `json:"linksChecked"`
	Defects      []Defect  `json:"defects"`
}

// Explorer checks routes. One Explorer serves a whole run so each link is
// fetched at most once.
type Explorer struct {
	logger   *zap.Logger
	checker  LinkChecker
	limiter  *rate.Limiter
	maxLinks int
	timeout  time.Duration
	now      func() time.Time

	mu   sync.Mutex
	seen map[string]bool
}

// NewExplorer creates an explorer from the exploration settings.
func NewExplorer(logger *zap.Logger, checker LinkChecker, cfg config.ExploreConfig) *Explorer {
	return &Explorer{
		logger:   logger.Named("explore"),
		checker:  checker,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxLinks: cfg.MaxLinks,
		timeout:  cfg.RequestTimeout,
		now:      time.Now,
		seen:     make(map[string]bool),
	}
}

// Explore runs the route's interaction script on page, then checks the
// same-origin links of the resulting document.
func (x *Explorer) Explore(ctx context.Context, page browser.Page, route config.Route) *Report {
	r := &Report{
		Timestamp: x.now().UTC(),
		Route:     route.Name,
		URL:       page.URL(),
		Defects:   []Defect{},
	}

	if len(route.Interactions) > 0 {
		r.Interactions = len(route.Interactions)
		if err := page.Interact(ctx, route.Interactions); err != nil {
			r.Defects = append(r.Defects, interactionDefect(route.Name, r.URL, err))
		}
	}

	snap, err := dom.Collect(ctx, page)
	if err != nil {
		x.logger.Warn("Failed to collect links.", zap.String("route", route.Name), zap.Error(err))
		return r
	}
	links := SameOriginLinks(snap, page.URL())
	r.LinksFound = len(links)
	if x.maxLinks >= 0 && len(links) > x.maxLinks {
		links = links[:x.maxLinks]
	}

	for _, link := range links {
		if !x.claim(link.URL) {
			continue
		}
		if err := x.limiter.Wait(ctx); err != nil {
			x.logger.Warn("Context cancelled while waiting for rate limiter.", zap.Error(err))
			break
		}
		r.LinksChecked++
		if d, bad := x.check(ctx, route.Name, link); bad {
			r.Defects = append(r.Defects, d)
		}
	}

	x.logger.Info("Exploration complete.",
		zap.String("route", route.Name),
		zap.Int("links_checked", r.LinksChecked),
		zap.Int("defects", len(r.Defects)))
	return r
}

// claim marks a URL as checked and reports whether this caller owns it.
func (x *Explorer) claim(u string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.seen[u] {
		return false
	}
	x.seen[u] = true
	return true
}

func (x *Explorer) check(ctx context.Context, route string, link Link) (Defect, bool) {
	checkCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	d := Defect{Route: route, URL: link.URL, Selector: link.Selector}
	status, err := x.checker.Check(checkCtx, link.URL)
	switch {
	case err != nil:
		d.Kind, d.Severity = KindUnreachableLink, SeverityMajor
		d.Detail = fmt.Sprintf("Request failed: %v", err)
	case status >= 500:
		d.Kind, d.Severity, d.Status = KindServerError, SeverityCritical, status
		d.Detail = fmt.Sprintf("Link answered with HTTP %d.", status)
	case status >= 400:
		d.Kind, d.Severity, d.Status = KindBrokenLink, SeverityMajor, status
		d.Detail = fmt.Sprintf("Link answered with HTTP %d.", status)
	default:
		return Defect{}, false
	}
	return d, true
}

func interactionDefect(route, pageURL string, err error) Defect {
	d := Defect{
		Kind:     KindInteractionFailed,
		Severity: SeverityMajor,
		Route:    route,
		URL:      pageURL,
		Detail:   err.Error(),
	}
	var ie *browser.InteractionError
	if errors.As(err, &ie) {
		d.Selector = ie.Selector
		d.Detail = fmt.Sprintf("Step %d (%s) failed: %v", ie.Step+1, ie.Action, ie.Err)
	}
	return d
}

// Link is an anchor found in the document.
type Link struct {
	URL      string
	Selector string
}

// SameOriginLinks resolves every a[href] against base and keeps unique
// same-origin http(s) URLs in document order, without fragments.
func SameOriginLinks(snap *dom.Snapshot, base string) []Link {
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return nil
	}
	var (
		out  []Link
		seen = map[string]bool{}
	)
	for _, e := range snap.ByTag("a", "area") {
		href, ok := e.Attr("href")
		if !ok {
			continue
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := baseURL.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if abs.Scheme != baseURL.Scheme || abs.Host != baseURL.Host {
			continue
		}
		abs.Fragment = ""
		abs.RawFragment = ""
		s := abs.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, Link{URL: s, Selector: e.Selector})
	}
	return out
}
