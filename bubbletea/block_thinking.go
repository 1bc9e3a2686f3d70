package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var _ MessageBlock = (*ThinkingBlock)(nil)

// ThinkingBlock renders model reasoning. Collapsed, it shows the latest
// line of thought after the header.
type ThinkingBlock struct {
	content   strings.Builder
	collapsed bool
	styles    Styles
}

// NewThinkingBlock creates a ThinkingBlock that starts collapsed.
func NewThinkingBlock(styles Styles) *ThinkingBlock {
	return &ThinkingBlock{collapsed: true, styles: styles}
}

// Append adds a thinking delta.
func (b *ThinkingBlock) Append(text string) {
	b.content.WriteString(text)
}

func (b *ThinkingBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ThinkingBlock) View(width int) string {
	if !b.collapsed {
		body := lipgloss.NewStyle().Width(width).Render(b.content.String())
		return b.styles.Thinking.Render("▼ Thinking\n" + body)
	}
	header := "▶ Thinking"
	if last := lastLine(b.content.String()); last != "" && width > len(header)+2 {
		header += "  " + runewidth.Truncate(last, width-len(header)-2, "…")
	}
	return b.styles.Thinking.Render(header)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
