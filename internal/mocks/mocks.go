// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/dom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -- Opener Mock --

// MockOpener mocks browser.Opener.
type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context, req browser.OpenRequest) (browser.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Page), args.Error(1)
}

// URLIs matches an OpenRequest by URL.
func URLIs(url string) interface{} {
	return mock.MatchedBy(func(req browser.OpenRequest) bool { return req.URL == url })
}

// -- Page Fake --

// FakePage is a browser.Page serving a fixed snapshot. Evaluate answers with
// the first Responses entry whose key occurs in the expression, falling back
// to the snapshot.
type FakePage struct {
	Snapshot       *dom.Snapshot
	Responses      map[string]string
	EvaluateErr    error
	PageURL        string
	StatusCode     int64
	ConsoleLog     []browser.ConsoleEntry
	Failed         []browser.FailedRequest
	PNG            []byte
	ScreenshotErr  error
	InteractErrors map[int]error

	// LateConsole joins Console once LateAfter has passed since MarkOpened.
	LateConsole []browser.ConsoleEntry
	LateAfter   time.Duration

	mu           sync.Mutex
	expressions  []string
	interactions [][]config.Interaction
	closeCount   int
	opened       time.Time
}

var _ browser.Page = (*FakePage)(nil)

// NewFakePage creates a page answering with snap.
func NewFakePage(snap *dom.Snapshot) *FakePage {
	url := ""
	if snap != nil {
		url = snap.URL
	}
	return &FakePage{
		Snapshot:   snap,
		Responses:  map[string]string{},
		PageURL:    url,
		StatusCode: 200,
		PNG:        []byte("\x89PNG\r\n\x1a\n"),
	}
}

func (p *FakePage) Evaluate(_ context.Context, expression string, out any) error {
	p.mu.Lock()
	p.expressions = append(p.expressions, expression)
	p.mu.Unlock()

	if p.EvaluateErr != nil {
		return p.EvaluateErr
	}
	for marker, body := range p.Responses {
		if strings.Contains(expression, marker) {
			return json.Unmarshal([]byte(body), out)
		}
	}
	data, err := json.Marshal(p.Snapshot)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (p *FakePage) Screenshot(context.Context, bool) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	return p.PNG, nil
}

func (p *FakePage) Interact(_ context.Context, steps []config.Interaction) error {
	p.mu.Lock()
	p.interactions = append(p.interactions, steps)
	p.mu.Unlock()
	for i, step := range steps {
		if err, ok := p.InteractErrors[i]; ok {
			return &browser.InteractionError{Step: i, Action: step.Action, Selector: step.Selector, Err: err}
		}
	}
	return nil
}

func (p *FakePage) Console() []browser.ConsoleEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.LateConsole) == 0 || p.opened.IsZero() || time.Since(p.opened) < p.LateAfter {
		return p.ConsoleLog
	}
	return append(append([]browser.ConsoleEntry(nil), p.ConsoleLog...), p.LateConsole...)
}

// MarkOpened starts the LateConsole clock.
func (p *FakePage) MarkOpened() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = time.Now()
}

func (p *FakePage) FailedRequests() []browser.FailedRequest { return p.Failed }
func (p *FakePage) Status() int64                           { return p.StatusCode }
func (p *FakePage) URL() string                             { return p.PageURL }

func (p *FakePage) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return nil
}

// Expressions returns every script evaluated so far.
func (p *FakePage) Expressions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.expressions...)
}

// Interactions returns every step list passed to Interact.
func (p *FakePage) Interactions() [][]config.Interaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]config.Interaction(nil), p.interactions...)
}

// CloseCount reports how often Close was called.
func (p *FakePage) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}
