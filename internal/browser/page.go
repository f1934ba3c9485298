// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const closeWaitTimeout = 10 * time.Second

// cdpPage is a Page backed by one chromedp tab.
type cdpPage struct {
	id     string
	logger *zap.Logger
	req    OpenRequest

	ctx       context.Context
	cancel    context.CancelFunc
	harvester *Harvester

	mu      sync.Mutex
	status  int64
	url     string
	closed  bool
	onClose func()
}

func newPage(browserCtx context.Context, logger *zap.Logger, req OpenRequest) *cdpPage {
	id := uuid.New().String()
	tabCtx, cancel := chromedp.NewContext(browserCtx)
	l := logger.With(zap.String("session_id", id[:8]), zap.String("viewport", req.Viewport.Name))
	return &cdpPage{
		id:        id,
		logger:    l,
		req:       req,
		ctx:       tabCtx,
		cancel:    cancel,
		harvester: NewHarvester(tabCtx, l),
		url:       req.URL,
	}
}

func (p *cdpPage) load(ctx context.Context) error {
	if err := p.prepare(ctx); err != nil {
		return &NavigationError{URL: p.req.URL, Err: fmt.Errorf("failed to prepare tab: %w", err)}
	}
	// Listeners attach before navigation so nothing emitted during it is missed.
	p.harvester.Start()

	opCtx, cancelOp := CombineContext(p.ctx, ctx)
	defer cancelOp()

	navCtx, cancelNav := context.WithTimeout(opCtx, p.req.Timeout)
	defer cancelNav()

	p.logger.Debug("Navigating", zap.String("url", p.req.URL))
	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(p.req.URL))
	if err != nil {
		return &NavigationError{URL: p.req.URL, Err: err}
	}
	if resp != nil {
		p.mu.Lock()
		p.status = resp.Status
		if resp.URL != "" {
			p.url = resp.URL
		}
		p.mu.Unlock()
		if resp.Status >= 400 && !p.req.AcceptErrorStatus {
			return &NavigationError{URL: p.req.URL, Status: resp.Status}
		}
	}

	if p.req.ReadySelector == "" {
		return nil
	}
	readyCtx, cancelReady := context.WithTimeout(opCtx, p.req.ReadyTimeout)
	defer cancelReady()
	if err := chromedp.Run(readyCtx, chromedp.WaitVisible(p.req.ReadySelector, chromedp.ByQuery)); err != nil {
		return &ReadinessTimeoutError{URL: p.req.URL, Selector: p.req.ReadySelector, Timeout: p.req.ReadyTimeout, Err: err}
	}
	return nil
}

// prepare creates the tab and emulates the viewport. The first Run binds the
// target to the context it is given, so it must run on the tab context
// itself; ctx only bounds how long the caller waits.
func (p *cdpPage) prepare(ctx context.Context) error {
	var emulate []chromedp.EmulateViewportOption
	if p.req.Viewport.Mobile {
		emulate = append(emulate, chromedp.EmulateMobile, chromedp.EmulateTouch)
	}
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(p.ctx,
			network.Enable(),
			chromedp.EmulateViewport(int64(p.req.Viewport.Width), int64(p.req.Viewport.Height), emulate...),
		)
	}()

	timer := time.NewTimer(p.req.Timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("tab not ready within %s", p.req.Timeout)
	}
}

// Evaluate runs a script in the page and decodes its JSON result into out.
func (p *cdpPage) Evaluate(ctx context.Context, expression string, out any) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("failed to evaluate script: %w", err)
	}
	return nil
}

// Screenshot captures a PNG of the viewport or the full document.
func (p *cdpPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()

	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 keeps the capture lossless PNG.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *cdpPage) Console() []ConsoleEntry         { return p.harvester.Console() }
func (p *cdpPage) FailedRequests() []FailedRequest { return p.harvester.FailedRequests() }

func (p *cdpPage) Status() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *cdpPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Close terminates the tab. Safe to call more than once.
func (p *cdpPage) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	onClose := p.onClose
	p.mu.Unlock()

	if onClose != nil {
		defer onClose()
	}

	p.harvester.Stop()
	p.cancel()

	waitCtx, cancelWait := context.WithTimeout(ctx, closeWaitTimeout)
	defer cancelWait()
	select {
	case <-p.ctx.Done():
		p.logger.Debug("Browser session closed gracefully.")
	case <-waitCtx.Done():
		p.logger.Warn("Deadline exceeded waiting for browser session to close.", zap.Error(waitCtx.Err()))
	}
	return nil
}
