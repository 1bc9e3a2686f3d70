package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders streamed model text as markdown. Text up to the
// last paragraph break outside a code fence is rendered once per width and
// cached; only the tail is rendered again on each delta.
type AssistantTextBlock struct {
	content strings.Builder
	theme   deck.Theme

	stable   string
	rendered map[int]string
}

// NewAssistantTextBlock creates a block for streaming assistant text.
func NewAssistantTextBlock(theme deck.Theme) *AssistantTextBlock {
	return &AssistantTextBlock{theme: theme, rendered: make(map[int]string)}
}

// Append adds a text delta.
func (b *AssistantTextBlock) Append(text string) {
	b.content.WriteString(text)
	b.advance()
}

// Text returns the raw markdown received so far.
func (b *AssistantTextBlock) Text() string { return b.content.String() }

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	head := b.renderStable(width)
	tail := strings.TrimPrefix(b.content.String(), b.stable)
	tail = strings.TrimPrefix(tail, "\n\n")
	if openFence(tail) {
		tail += "\n```"
	}
	var out string
	if strings.TrimSpace(tail) != "" {
		out = goldmark.Render(tail, width, b.theme)
	}
	switch {
	case strings.TrimSpace(out) == "":
		return head
	case head == "":
		return out
	}
	return strings.TrimRight(head, "\n") + "\n\n" + strings.TrimLeft(out, "\n")
}

// advance moves the stable prefix to the last paragraph break whose prefix
// has every fence closed.
func (b *AssistantTextBlock) advance() {
	raw := b.content.String()
	end := len(raw)
	for {
		i := strings.LastIndex(raw[:end], "\n\n")
		if i <= len(b.stable) {
			return
		}
		if !openFence(raw[:i]) {
			b.stable = raw[:i]
			clear(b.rendered)
			return
		}
		end = i
	}
}

func (b *AssistantTextBlock) renderStable(width int) string {
	if width <= 0 || b.stable == "" {
		return ""
	}
	if s, ok := b.rendered[width]; ok {
		return s
	}
	s := goldmark.Render(b.stable, width, b.theme)
	b.rendered[width] = s
	return s
}

// openFence reports an odd number of ``` markers. Backticks inside inline
// code are counted too.
func openFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
