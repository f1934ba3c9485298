// internal/browser/harvester.go
package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const maxConsoleEntries = 500

type pendingRequest struct {
	url          string
	method       string
	resourceType string
}

// Harvester records console output, uncaught exceptions and failed network
// requests for one tab.
type Harvester struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu       sync.RWMutex
	console  []ConsoleEntry
	failed   []FailedRequest
	requests map[network.RequestID]pendingRequest
	started  bool
}

// NewHarvester creates a harvester bound to a tab context.
func NewHarvester(sessionCtx context.Context, logger *zap.Logger) *Harvester {
	ctx, cancel := context.WithCancel(sessionCtx)
	return &Harvester{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.Named("harvester"),
		requests: make(map[network.RequestID]pendingRequest),
	}
}

// Start begins listening. It must run before navigation so early errors are kept.
func (h *Harvester) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true
	chromedp.ListenTarget(h.ctx, h.handle)
}

// Stop halts collection. Recorded data stays readable.
func (h *Harvester) Stop() {
	h.cancel()
}

func (h *Harvester) handle(ev interface{}) {
	select {
	case <-h.ctx.Done():
		return
	default:
	}

	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		h.onConsoleAPI(ev)
	case *runtime.EventExceptionThrown:
		h.onException(ev)
	case *log.EventEntryAdded:
		h.onLogEntry(ev)
	case *network.EventRequestWillBeSent:
		h.mu.Lock()
		h.requests[ev.RequestID] = pendingRequest{
			url:          ev.Request.URL,
			method:       ev.Request.Method,
			resourceType: string(ev.Type),
		}
		h.mu.Unlock()
	case *network.EventResponseReceived:
		if ev.Response == nil || ev.Response.Status < 400 {
			return
		}
		h.mu.Lock()
		req := h.requests[ev.RequestID]
		h.failed = append(h.failed, FailedRequest{
			URL:          ev.Response.URL,
			Method:       req.method,
			ResourceType: string(ev.Type),
			Status:       ev.Response.Status,
		})
		h.mu.Unlock()
	case *network.EventLoadingFailed:
		if ev.Canceled {
			return
		}
		h.mu.Lock()
		req := h.requests[ev.RequestID]
		h.failed = append(h.failed, FailedRequest{
			URL:          req.url,
			Method:       req.method,
			ResourceType: string(ev.Type),
			ErrorText:    ev.ErrorText,
		})
		h.mu.Unlock()
	}
}

func (h *Harvester) onConsoleAPI(ev *runtime.EventConsoleAPICalled) {
	level := string(ev.Type)
	switch level {
	case "error", "assert":
		level = LevelError
	case "warning":
		level = LevelWarning
	default:
		return
	}
	parts := make([]string, 0, len(ev.Args))
	for _, arg := range ev.Args {
		parts = append(parts, remoteObjectText(arg))
	}
	entry := ConsoleEntry{Level: level, Source: SourceConsole, Text: strings.Join(parts, " "), Timestamp: time.Now()}
	if ev.StackTrace != nil && len(ev.StackTrace.CallFrames) > 0 {
		entry.URL = ev.StackTrace.CallFrames[0].URL
		entry.Line = ev.StackTrace.CallFrames[0].LineNumber
	}
	h.record(entry)
}

func (h *Harvester) onException(ev *runtime.EventExceptionThrown) {
	d := ev.ExceptionDetails
	if d == nil {
		return
	}
	text := d.Text
	if d.Exception != nil && d.Exception.Description != "" {
		text = d.Exception.Description
	}
	h.record(ConsoleEntry{
		Level:     LevelError,
		Source:    SourceException,
		Text:      text,
		URL:       d.URL,
		Line:      d.LineNumber,
		Timestamp: time.Now(),
	})
}

func (h *Harvester) onLogEntry(ev *log.EventEntryAdded) {
	if ev.Entry == nil || string(ev.Entry.Level) != LevelError {
		return
	}
	// Console API calls and exceptions are already captured through the runtime domain.
	switch string(ev.Entry.Source) {
	case "console-api", "javascript":
		return
	}
	h.record(ConsoleEntry{
		Level:     LevelError,
		Source:    SourceBrowser,
		Text:      ev.Entry.Text,
		URL:       ev.Entry.URL,
		Line:      ev.Entry.LineNumber,
		Timestamp: time.Now(),
	})
}

func (h *Harvester) record(entry ConsoleEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.console) >= maxConsoleEntries {
		return
	}
	h.console = append(h.console, entry)
}

// Console returns a copy of the recorded entries.
func (h *Harvester) Console() []ConsoleEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ConsoleEntry, len(h.console))
	copy(out, h.console)
	return out
}

// FailedRequests returns a copy of the recorded failures.
func (h *Harvester) FailedRequests() []FailedRequest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]FailedRequest, len(h.failed))
	copy(out, h.failed)
	return out
}

func remoteObjectText(obj *runtime.RemoteObject) string {
	if obj == nil {
		return ""
	}
	if len(obj.Value) > 0 {
		s := string(obj.Value)
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
		}
		return s
	}
	if obj.Description != "" {
		return obj.Description
	}
	return string(obj.Type)
}
