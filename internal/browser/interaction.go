// internal/browser/interaction.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/config"
)

const (
	stepTimeout = 10 * time.Second
	// settleDelay lets event handlers run after a step.
	settleDelay = 150 * time.Millisecond
)

// Interact executes steps in order, stopping at the first failure.
func (p *cdpPage) Interact(ctx context.Context, steps []config.Interaction) error {
	for i, step := range steps {
		if err := p.runStep(ctx, step); err != nil {
			p.logger.Debug("Interaction step failed.",
				zap.Int("step", i), zap.String("action", step.Action), zap.Error(err))
			return &InteractionError{Step: i, Action: step.Action, Selector: step.Selector, Err: err}
		}
	}
	return nil
}

func (p *cdpPage) runStep(ctx context.Context, step config.Interaction) error {
	opCtx, cancelOp := CombineContext(p.ctx, ctx)
	defer cancelOp()

	timeout := stepTimeout
	if step.Action == config.ActionWait && step.Wait > timeout {
		timeout = step.Wait + stepTimeout
	}
	runCtx, cancel := context.WithTimeout(opCtx, timeout)
	defer cancel()

	actions, err := stepActions(step)
	if err != nil {
		return err
	}
	return chromedp.Run(runCtx, append(actions, chromedp.Sleep(settleDelay))...)
}

// stepActions translates one scripted interaction into chromedp actions.
func stepActions(step config.Interaction) ([]chromedp.Action, error) {
	switch step.Action {
	case config.ActionClick:
		return []chromedp.Action{
			chromedp.WaitVisible(step.Selector, chromedp.ByQuery),
			chromedp.Click(step.Selector, chromedp.ByQuery, chromedp.NodeVisible),
		}, nil
	case config.ActionType:
		return []chromedp.Action{
			chromedp.WaitVisible(step.Selector, chromedp.ByQuery),
			chromedp.Focus(step.Selector, chromedp.ByQuery),
			chromedp.SendKeys(step.Selector, step.Value, chromedp.ByQuery),
		}, nil
	case config.ActionSelect:
		return []chromedp.Action{
			chromedp.WaitVisible(step.Selector, chromedp.ByQuery),
			chromedp.SetValue(step.Selector, step.Value, chromedp.ByQuery),
			dispatchChange(step.Selector),
		}, nil
	case config.ActionHover:
		return []chromedp.Action{
			chromedp.WaitVisible(step.Selector, chromedp.ByQuery),
			chromedp.ScrollIntoView(step.Selector, chromedp.ByQuery),
			hover(step.Selector),
		}, nil
	case config.ActionWait:
		if step.Selector != "" {
			return []chromedp.Action{chromedp.WaitVisible(step.Selector, chromedp.ByQuery)}, nil
		}
		return []chromedp.Action{chromedp.Sleep(step.Wait)}, nil
	}
	return nil, fmt.Errorf("unsupported action %q", step.Action)
}

func dispatchChange(selector string) chromedp.Action {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, selector)
	var ok bool
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.Evaluate(script, &ok).Do(ctx); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no element matches %q", selector)
		}
		return nil
	})
}

// hover moves the mouse to the centre of the first matching node.
func hover(selector string) chromedp.Action {
	var nodes []*cdp.Node
	return chromedp.Tasks{
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("no element matches %q", selector)
			}
			box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to get box model: %w", err)
			}
			if box == nil || len(box.Content) < 8 {
				return errors.New("element has no layout box")
			}
			q := box.Content
			x := (q[0] + q[2] + q[4] + q[6]) / 4
			y := (q[1] + q[3] + q[5] + q[7]) / 4
			return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
		}),
	}
}
