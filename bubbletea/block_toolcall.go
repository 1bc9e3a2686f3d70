package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/deck"
	"github.com/fwojciec/deck/toolcall"
	"github.com/tidwall/gjson"
)

var _ MessageBlock = (*ToolCallBlock)(nil)

// ToolCallBlock renders a tool call while its arguments stream in. The
// header names the infographic being written; expanded, it shows the
// syntax received so far.
type ToolCallBlock struct {
	name      string
	id        string
	args      strings.Builder
	done      bool
	collapsed bool
	styles    Styles
}

// NewToolCallBlock creates a ToolCallBlock that starts collapsed.
func NewToolCallBlock(name, id string, styles Styles) *ToolCallBlock {
	return &ToolCallBlock{name: name, id: id, collapsed: true, styles: styles}
}

// ID returns the tool call id.
func (b *ToolCallBlock) ID() string { return b.id }

// AppendArgs adds an argument delta.
func (b *ToolCallBlock) AppendArgs(text string) {
	b.args.WriteString(text)
}

// Finish applies the completed call. Arguments are taken from it only when
// none were streamed.
func (b *ToolCallBlock) Finish(call deck.ToolCallBlock) {
	if b.args.Len() == 0 && len(call.Arguments) > 0 {
		b.args.Write(call.Arguments)
	}
	b.done = true
}

func (b *ToolCallBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	if _, ok := msg.(ToggleMsg); ok {
		b.collapsed = !b.collapsed
	}
	return b, nil
}

func (b *ToolCallBlock) View(width int) string {
	doc := b.input()
	indicator := "▶"
	if !b.collapsed {
		indicator = "▼"
	}
	header := b.styles.ToolCall.Render(indicator + " " + b.name)
	if label := label(doc); label != "" {
		header += " " + b.styles.Accent.Render(label)
	}
	if !b.done {
		header += b.styles.Muted.Render(" …")
	}
	content := header
	if !b.collapsed {
		body := doc.Get("syntax").String()
		if body == "" {
			body = b.args.String()
		}
		if body != "" {
			content += "\n" + b.styles.Muted.Render(body)
		}
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// input parses the arguments received so far, closing them when cut off.
func (b *ToolCallBlock) input() gjson.Result {
	comp, ok := toolcall.Complete(b.args.String())
	if !ok {
		return gjson.Result{}
	}
	return gjson.Parse(comp.JSON)
}

func label(doc gjson.Result) string {
	if t := doc.Get("title").String(); t != "" {
		return t
	}
	if s := doc.Get("syntax").String(); s != "" {
		return deck.Infographic{Content: s}.Template()
	}
	return doc.Get("infographicId").String()
}
