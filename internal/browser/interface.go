// internal/browser/interface.go
package browser

import (
	"context"
	"time"

	"github.com/xkilldash9x/uiprobe/internal/config"
)

// Evaluator submits a serializable query to a live page and decodes the
// JSON result into out. It is the only primitive detection code relies on.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Page is one open browser tab navigated to a route.
type Page interface {
	Evaluator
	// Screenshot captures the viewport, or the whole document when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// Interact runs scripted steps in order and stops at the first failure,
	// which is returned as an *InteractionError.
	Interact(ctx context.Context, steps []config.Interaction) error
	// Console returns the console errors, warnings and uncaught exceptions seen so far.
	Console() []ConsoleEntry
	// FailedRequests returns network requests that failed or answered >= 400.
	FailedRequests() []FailedRequest
	// Status is the HTTP status of the main document, 0 when unknown.
	Status() int64
	URL() string
	// Close releases the tab. It is idempotent.
	Close(ctx context.Context) error
}

// Opener opens pages. Phases depend on this rather than on *Manager.
type Opener interface {
	Open(ctx context.Context, req OpenRequest) (Page, error)
}

// OpenRequest describes one navigation.
type OpenRequest struct {
	URL      string
	Viewport config.Viewport
	// ReadySelector, when set, must become visible within ReadyTimeout.
	ReadySelector string
	Timeout       time.Duration
	ReadyTimeout  time.Duration
	// AcceptErrorStatus keeps the page open when the main document answers
	// with a 4xx/5xx status instead of failing with a NavigationError.
	AcceptErrorStatus bool
}

// ConsoleEntry is a console message or uncaught exception.
type ConsoleEntry struct {
	Level     string    `json:"level"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Line      int64     `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Console entry levels and sources the harvester emits.
const (
	LevelError   = "error"
	LevelWarning = "warning"

	SourceConsole   = "console"
	SourceException = "exception"
	SourceBrowser   = "browser"
)

// IsError reports whether the entry counts as a runtime error.
func (c ConsoleEntry) IsError() bool {
	return c.Level == LevelError
}

// FailedRequest is a subresource that failed to load or answered >= 400.
type FailedRequest struct {
	URL          string `json:"url"`
	Method       string `json:"method"`
	ResourceType string `json:"resourceType"`
	Status       int64  `json:"status,omitempty"`
	ErrorText    string `json:"errorText,omitempty"`
}
