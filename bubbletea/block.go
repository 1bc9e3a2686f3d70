package bubbletea

import tea "github.com/charmbracelet/bubbletea"

// MessageBlock is a renderable element in the conversation.
// Unlike tea.Model, View takes a width parameter so the root model
// controls layout and blocks are testable in isolation.
type MessageBlock interface {
	Update(tea.Msg) (MessageBlock, tea.Cmd)
	View(width int) string
}

// ToggleMsg tells a collapsible block to toggle its collapsed state.
type ToggleMsg struct{}

// blockSeparator returns the spacing placed before curr. Tool output stays
// packed together; everything else is separated by a blank line.
func blockSeparator(prev, curr MessageBlock) string {
	if isTool(prev) && isTool(curr) {
		return "\n"
	}
	return "\n\n"
}

func isTool(b MessageBlock) bool {
	switch b.(type) {
	case *ToolCallBlock, *ToolResultBlock:
		return true
	}
	return false
}
