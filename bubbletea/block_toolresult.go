package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*ToolResultBlock)(nil)

// ToolResultBlock renders a tool result. Successful results start collapsed
// to a one-line preview; errors are always expanded.
type ToolResultBlock struct {
	toolName  string
	content   string
	isError   bool
	collapsed bool
	styles    Styles
}

// NewToolResultBlock creates a ToolResultBlock.
func NewToolResultBlock(toolName, content string, isError bool, styles Styles) *ToolResultBlock {
	return &ToolResultBlock{
		toolName:  toolName,
		content:   content,
		isError:   isError,
		collapsed: !isError,
		styles:    styles,
	}
}

// IsError reports whether the tool failed.
func (b *ToolResultBlock) IsError() bool { return b.isError }

func (b *ToolResultBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok && !b.isError {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ToolResultBlock) View(width int) string {
	icon := b.styles.Success.Render("✓")
	if b.isError {
		icon = b.styles.Error.Render("✗")
	}
	indicator := "▼"
	if b.collapsed {
		indicator = "▶"
	}
	header := b.styles.ToolCall.Render(indicator+" "+b.toolName) + " " + icon
	wrap := lipgloss.NewStyle().Width(width)
	if b.content == "" {
		return wrap.Render(header)
	}
	if b.collapsed {
		room := width - lipgloss.Width(header) - 2
		if room <= 0 {
			return wrap.Render(header)
		}
		preview := runewidth.Truncate(firstLine(b.content), room, "…")
		return wrap.Render(header + "  " + b.styles.Muted.Render(preview))
	}
	body := b.content
	if b.isError {
		body = b.styles.Error.Render(body)
	}
	return wrap.Render(header + "\n" + body)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
