// internal/remediation/remediation.go

// Package remediation applies the mechanical fixes attached to accessibility
// issues to a live page. Every change is tagged in the DOM so it can be
// reverted within the same session; nothing is remembered across runs.
package remediation

import (
	"context"
	_ "embed"
	"fmt"
	"runtime/debug"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/a11y"
	"github.com/xkilldash9x/uiprobe/internal/browser"
)

var (
	//go:embed apply.js
	applyScript string
	//go:embed revert.js
	revertScript string
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const fixTimeout = 5 * time.Second

// FixApplicationError reports a fix that could not be applied. It is logged
// and counted as failed; it never aborts remediation.
type FixApplicationError struct {
	IssueID  string
	Kind     a11y.FixKind
	Selector string
	Reason   string
	Err      error
}

func (e *FixApplicationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fix %s (%s on %q) failed: %s: %v", e.IssueID, e.Kind, e.Selector, e.Reason, e.Err)
	}
	return fmt.Sprintf("fix %s (%s on %q) failed: %s", e.IssueID, e.Kind, e.Selector, e.Reason)
}

func (e *FixApplicationError) Unwrap() error { return e.Err }

// payload is the serialized form of a Fix handed to the applier script.
type payload struct {
	ID      string        `json:"id"`
	Kind    a11y.FixKind  `json:"kind"`
	Target  string        `json:"target"`
	Changes []a11y.Change `json:"changes"`
}

type applyResult struct {
	Matched int    `json:"matched"`
	Applied int    `json:"applied"`
	Error   string `json:"error"`
}

// RevertResult counts what Revert undid.
type RevertResult struct {
	Restored int `json:"restored"`
	Inserted int `json:"inserted"`
}

// Outcome summarizes one Apply call.
type Outcome struct {
	Attempted int
	Applied   int
	Failures  []*FixApplicationError
}

// Engine applies fixes through a page's Evaluate primitive.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a remediation engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.Named("remediation")}
}

// Apply attempts every fixable issue in order and returns the number of
// fixes that took effect. It never returns an error and never panics;
// failures are logged.
func (e *Engine) Apply(ctx context.Context, ev browser.Evaluator, issues []a11y.Issue) int {
	return e.ApplyAll(ctx, ev, issues).Applied
}

// ApplyAll is Apply with the per-fix failures retained.
func (e *Engine) ApplyAll(ctx context.Context, ev browser.Evaluator, issues []a11y.Issue) Outcome {
	var out Outcome
	for i, issue := range issues {
		if !issue.Fixable || issue.Fix == nil {
			continue
		}
		out.Attempted++
		p := payload{
			ID:      fmt.Sprintf("%s-%d", issue.ID, i),
			Kind:    issue.Fix.Kind,
			Target:  issue.Fix.Target,
			Changes: issue.Fix.Changes,
		}
		if err := e.applyOne(ctx, ev, issue.ID, p); err != nil {
			out.Failures = append(out.Failures, err)
			e.logger.Warn("Fix not applied.",
				zap.String("issue", issue.ID),
				zap.String("selector", p.Target),
				zap.String("reason", err.Reason),
				zap.Error(err.Err))
			continue
		}
		out.Applied++
	}
	e.logger.Debug("Remediation finished.",
		zap.Int("attempted", out.Attempted), zap.Int("applied", out.Applied))
	return out
}

func (e *Engine) applyOne(ctx context.Context, ev browser.Evaluator, issueID string, p payload) (fixErr *FixApplicationError) {
	fail := func(reason string, err error) *FixApplicationError {
		return &FixApplicationError{IssueID: issueID, Kind: p.Kind, Selector: p.Target, Reason: reason, Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered while applying fix.",
				zap.String("issue", issueID), zap.Any("panic_value", r), zap.ByteString("stack", debug.Stack()))
			fixErr = fail("panic", fmt.Errorf("%v", r))
		}
	}()

	expr, err := applyExpression(p)
	if err != nil {
		return fail("encode fix", err)
	}

	fixCtx, cancel := context.WithTimeout(ctx, fixTimeout)
	defer cancel()

	var res applyResult
	if err := ev.Evaluate(fixCtx, expr, &res); err != nil {
		return fail("evaluate", err)
	}
	if res.Error != "" {
		return fail(res.Error, nil)
	}
	if res.Matched == 0 {
		return fail("selector matched no elements", nil)
	}
	if res.Applied == 0 {
		return fail("no change applied", nil)
	}
	return nil
}

// Revert undoes every tagged change on the page.
func (e *Engine) Revert(ctx context.Context, ev browser.Evaluator) (RevertResult, error) {
	var res RevertResult
	if err := ev.Evaluate(ctx, revertScript, &res); err != nil {
		return res, fmt.Errorf("failed to revert fixes: %w", err)
	}
	e.logger.Debug("Fixes reverted.", zap.Int("restored", res.Restored), zap.Int("inserted", res.Inserted))
	return res, nil
}

func applyExpression(p payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", applyScript, data), nil
}
