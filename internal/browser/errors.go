// internal/browser/errors.go
package browser

import (
	"fmt"
	"time"
)

// LaunchError means the browser process could not be started. It aborts the run.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch browser: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// NavigationError means a page could not be loaded.
type NavigationError struct {
	URL    string
	Status int64
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Status >= 400 {
		return fmt.Sprintf("navigation to %s failed: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ReadinessTimeoutError means the ready selector never became visible.
type ReadinessTimeoutError struct {
	URL      string
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("page %s not ready: %q not visible after %s", e.URL, e.Selector, e.Timeout)
}

func (e *ReadinessTimeoutError) Unwrap() error { return e.Err }

// InteractionError reports the scripted step that failed.
type InteractionError struct {
	Step     int
	Action   string
	Selector string
	Err      error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("interaction %d (%s %q) failed: %v", e.Step, e.Action, e.Selector, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }
