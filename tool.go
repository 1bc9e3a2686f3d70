package deck

import (
	"context"
	"encoding/json"
)

// Tool is the schema sent to the LLM describing a tool's capabilities.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolExecutor runs tools. Execute returns error for infrastructure failures.
// ToolResult.IsError indicates tool-reported domain failures sent back to the LLM.
// The whole call is passed because results are keyed by call ID.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCallBlock) (*ToolResult, error)
}

// ToolResult represents the outcome of a tool execution.
type ToolResult struct {
	Content []ContentBlock
	IsError bool
}

// Text concatenates the result's text blocks.
func (r ToolResult) Text() string {
	var s string
	for _, b := range r.Content {
		if tb, ok := b.(TextBlock); ok {
			s += tb.Text
		}
	}
	return s
}
