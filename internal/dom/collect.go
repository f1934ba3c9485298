// File: internal/dom/collect.go
package dom

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed collect.js
var collectScript string

// Evaluator runs a serializable query against a live page and decodes the
// JSON result into out.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, out any) error
}

// Collect gathers a snapshot of the live document in a single round trip.
func Collect(ctx context.Context, ev Evaluator) (*Snapshot, error) {
	var snap Snapshot
	if err := ev.Evaluate(ctx, collectScript, &snap); err != nil {
		return nil, fmt.Errorf("failed to collect dom snapshot: %w", err)
	}
	if len(snap.Elements) == 0 {
		return nil, errors.New("dom snapshot is empty")
	}
	return &snap, nil
}
