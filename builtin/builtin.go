// Package builtin provides the infographic tools the model edits slides with.
package builtin

import (
	"fmt"

	"github.com/fwojciec/deck"
	"github.com/tidwall/sjson"
)

func domainError(msg string) *deck.ToolResult {
	return &deck.ToolResult{
		Content: []deck.ContentBlock{deck.TextBlock{Text: msg}},
		IsError: true,
	}
}

func textResult(text string) *deck.ToolResult {
	return &deck.ToolResult{
		Content: []deck.ContentBlock{deck.TextBlock{Text: text}},
		IsError: false,
	}
}

// jsonResult builds a JSON object result from alternating path/value pairs.
func jsonResult(kv ...any) (*deck.ToolResult, error) {
	doc := "{}"
	for i := 0; i+1 < len(kv); i += 2 {
		path, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("builtin: result path %v is not a string", kv[i])
		}
		var err error
		if doc, err = sjson.Set(doc, path, kv[i+1]); err != nil {
			return nil, fmt.Errorf("builtin: set %s: %w", path, err)
		}
	}
	return textResult(doc), nil
}
