// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/config"
)

var _ Opener = (*Manager)(nil)

// Manager owns the browser process. Every unit of work gets its own tab
// through Open; tabs are never reused.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	// browserCtx holds the browser connection. Every tab derives from it.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser and verifies it responds. Any failure is
// returned as a *LaunchError.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, &LaunchError{Err: err}
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(m.cfg)...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel
	m.browserCtx, m.browserCancel = chromedp.NewContext(allocCtx)

	// The first Run allocates the process, so it must not carry a deadline;
	// the launch timeout is enforced around it instead.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(m.browserCtx) }()

	timer := time.NewTimer(m.cfg.LaunchTimeout)
	defer timer.Stop()
	select {
	case err := <-started:
		if err != nil {
			m.stop()
			return fmt.Errorf("browser failed to start: %w", err)
		}
	case <-timer.C:
		m.stop()
		return fmt.Errorf("browser did not start within %s", m.cfg.LaunchTimeout)
	}

	// Confirm the browser is responsive.
	testCtx, cancelTest := context.WithTimeout(m.browserCtx, m.cfg.LaunchTimeout)
	defer cancelTest()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.stop()
		return fmt.Errorf("browser failed to respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// DefaultAllocatorOptions assembles the launch flags for a configured browser.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}
	return opts
}

// allocatorFlags maps command-line flag names to their values. Custom args
// are applied last and override the built-in flags.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":           cfg.Headless,
		"hide-scrollbars":    true,
		"mute-audio":         true,
		"disable-extensions": true,
		"disable-gpu":        cfg.Headless,
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}

	// Needed when running inside containers.
	if runtime.GOOS == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
		flags["disable-setuid-sandbox"] = true
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if flagName == "" {
			continue
		}
		if len(parts) == 2 {
			flags[flagName] = parts[1]
		} else {
			flags[flagName] = true
		}
	}
	return flags
}

// Open creates a tab, emulates the viewport, navigates and waits for the
// ready selector. On failure the tab is closed and a *NavigationError or
// *ReadinessTimeoutError is returned.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (Page, error) {
	if m.browserCtx == nil {
		return nil, errors.New("browser manager is not running")
	}
	if err := m.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("browser process is gone: %w", err)
	}

	p := newPage(m.browserCtx, m.logger, req)
	m.wg.Add(1)
	p.onClose = m.wg.Done

	if err := p.load(ctx); err != nil {
		_ = p.Close(Detach(ctx))
		return nil, err
	}
	return p, nil
}

// Shutdown waits for open pages (bounded by ctx) and then kills the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for active sessions to complete...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have completed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	m.logger.Info("Shutting down main browser process...")
	m.stop()
	return nil
}

func (m *Manager) stop() {
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocatorCancel != nil {
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
}
