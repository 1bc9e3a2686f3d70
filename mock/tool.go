package mock

import (
	"context"

	"github.com/fwojciec/deck"
)

// Interface compliance check.
var _ deck.ToolExecutor = (*ToolExecutor)(nil)

// ToolExecutor is a test double for deck.ToolExecutor.
// Set ExecuteFn before calling Execute.
type ToolExecutor struct {
	ExecuteFn func(ctx context.Context, call deck.ToolCallBlock) (*deck.ToolResult, error)
}

// Execute delegates to ExecuteFn.
func (e *ToolExecutor) Execute(ctx context.Context, call deck.ToolCallBlock) (*deck.ToolResult, error) {
	return e.ExecuteFn(ctx, call)
}
