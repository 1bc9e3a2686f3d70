package deck

import (
	"fmt"
	"slices"
)

// Validate checks a request before it reaches a provider: generation
// parameters in range, unique named tools and messages whose blocks fit
// their role.
func (r Request) Validate() error {
	if t := r.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *t, ErrValidation)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	seen := make(map[string]bool, len(r.Tools))
	for _, t := range r.Tools {
		switch {
		case t.Name == "":
			return fmt.Errorf("tool name required: %w", ErrValidation)
		case seen[t.Name]:
			return fmt.Errorf("duplicate tool %q: %w", t.Name, ErrValidation)
		}
		seen[t.Name] = true
	}
	for i, m := range r.Messages {
		if err := ValidateMessage(m); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// blockKinds lists the content blocks each role may carry.
var blockKinds = map[Role][]string{
	RoleUser:       {"TextBlock", "ImageBlock"},
	RoleAssistant:  {"TextBlock", "ThinkingBlock", "ToolCallBlock"},
	RoleToolResult: {"TextBlock", "ImageBlock"},
}

// ValidateMessage checks that a message's content blocks are valid for its role.
func ValidateMessage(msg Message) error {
	var blocks []ContentBlock
	switch m := msg.(type) {
	case UserMessage:
		blocks = m.Content
	case AssistantMessage:
		blocks = m.Content
	case ToolResultMessage:
		if m.ToolCallID == "" {
			return fmt.Errorf("tool result without a call id: %w", ErrValidation)
		}
		blocks = m.Content
	default:
		return fmt.Errorf("unknown message type %T: %w", msg, ErrValidation)
	}
	role := msg.Role()
	for _, b := range blocks {
		kind := blockKind(b)
		if kind == "" {
			return fmt.Errorf("unknown content block type %T in %s message: %w", b, role, ErrValidation)
		}
		if !slices.Contains(blockKinds[role], kind) {
			return fmt.Errorf("%s not allowed in %s message: %w", kind, role, ErrValidation)
		}
		if tc, ok := b.(ToolCallBlock); ok && (tc.ID == "" || tc.Name == "") {
			return fmt.Errorf("tool call needs an id and a name: %w", ErrValidation)
		}
	}
	return nil
}

func blockKind(b ContentBlock) string {
	switch b.(type) {
	case TextBlock:
		return "TextBlock"
	case ThinkingBlock:
		return "ThinkingBlock"
	case ImageBlock:
		return "ImageBlock"
	case ToolCallBlock:
		return "ToolCallBlock"
	}
	return ""
}
