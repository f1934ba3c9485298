// internal/design/extractor.go
package design

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/dom"
	"github.com/xkilldash9x/uiprobe/internal/sink"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReferenceViewport is the canvas every reference source is rendered at.
var ReferenceViewport = config.Viewport{Name: "reference", Width: 1920, Height: 1080}

// ReferenceUnreachableError means a reference source could not be loaded or
// queried in time. The source is skipped.
type ReferenceUnreachableError struct {
	Name string
	URL  string
	Err  error
}

func (e *ReferenceUnreachableError) Error() string {
	return fmt.Sprintf("reference %s (%s) unreachable: %v", e.Name, e.URL, e.Err)
}

func (e *ReferenceUnreachableError) Unwrap() error { return e.Err }

// Extractor renders reference sources and derives their design profiles.
type Extractor struct {
	logger  *zap.Logger
	opener  browser.Opener
	out     sink.Sink
	timeout time.Duration
	now     func() time.Time
}

// NewExtractor creates an extractor. timeout bounds navigation and readiness
// for each source.
func NewExtractor(logger *zap.Logger, opener browser.Opener, out sink.Sink, timeout time.Duration) *Extractor {
	return &Extractor{
		logger:  logger.Named("design"),
		opener:  opener,
		out:     out,
		timeout: timeout,
		now:     time.Now,
	}
}

// Extract analyzes one reference in a dedicated session. Load and query
// failures are returned as *ReferenceUnreachableError.
func (x *Extractor) Extract(ctx context.Context, ref Reference) (*Analysis, error) {
	log := x.logger.With(zap.String("reference", ref.Name), zap.String("url", ref.URL))
	log.Info("Extracting reference design.")

	unreachable := func(err error) error {
		return &ReferenceUnreachableError{Name: ref.Name, URL: ref.URL, Err: err}
	}

	page, err := x.opener.Open(ctx, browser.OpenRequest{
		URL:          ref.URL,
		Viewport:     ReferenceViewport,
		Timeout:      x.timeout,
		ReadyTimeout: x.timeout,
	})
	if err != nil {
		return nil, unreachable(err)
	}
	defer page.Close(browser.Detach(ctx))

	queryCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	snap, err := dom.Collect(queryCtx, page)
	if err != nil {
		return nil, unreachable(err)
	}

	a := Analyze(ref, snap)
	a.AnalyzedAt = x.now().UTC()

	slug := ref.Slug()
	if png, err := page.Screenshot(queryCtx, true); err != nil {
		log.Warn("Failed to capture reference screenshot.", zap.Error(err))
	} else {
		path := "design/" + slug + ".png"
		if err := x.out.Write(path, png); err != nil {
			log.Warn("Failed to store reference screenshot.", zap.Error(err))
		} else {
			a.Screenshot = path
		}
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode design analysis: %w", err)
	}
	if err := x.out.Write("design/"+slug+".json", data); err != nil {
		log.Warn("Failed to store design analysis.", zap.Error(err))
	}

	log.Info("Reference design extracted.",
		zap.Float64("score", a.Score),
		zap.Int("palette", len(a.Palette)),
		zap.String("layout", a.Layout.Kind))
	return a, nil
}
