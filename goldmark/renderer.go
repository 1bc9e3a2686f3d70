package goldmark

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/deck"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type styles struct {
	bold     lipgloss.Style
	italic   lipgloss.Style
	heading  lipgloss.Style
	muted    lipgloss.Style
	link     lipgloss.Style
	template lipgloss.Style
}

type renderer struct {
	styles
	width  int
	source []byte
}

func newRenderer(theme deck.Theme, width int) *renderer {
	return &renderer{
		width: width,
		styles: styles{
			bold:     lipgloss.NewStyle().Bold(true),
			italic:   lipgloss.NewStyle().Italic(true),
			heading:  lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
			muted:    lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
			link:     lipgloss.NewStyle().Underline(true),
			template: lipgloss.NewStyle().Foreground(ansiColor(theme.Selection)).Bold(true),
		},
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *renderer) render(source []byte) string {
	r.source = source
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	r.blocks(doc, r.width, &buf)
	return strings.TrimRight(buf.String(), "\n")
}

// blocks renders the children of node separated by blank lines.
func (r *renderer) blocks(node ast.Node, width int, buf *bytes.Buffer) {
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.block(c, width, buf)
		if c.NextSibling() != nil && c.Kind() != ast.KindHTMLBlock {
			buf.WriteByte('\n')
		}
	}
}

func (r *renderer) block(node ast.Node, width int, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		r.wrapped(r.inlines(n), width, buf)
	case *ast.Heading:
		r.wrapped(r.heading.Render(r.inlines(n)), width, buf)
	case *ast.FencedCodeBlock:
		r.fence(n, buf)
	case *ast.CodeBlock:
		r.code(blockText(n, r.source), buf)
	case *ast.List:
		r.list(n, width, 0, buf)
	case *ast.ThematicBreak:
		buf.WriteString("---\n")
	case *ast.HTMLBlock:
		buf.WriteString(blockText(n, r.source))
	default:
		r.blocks(node, width, buf)
	}
}

func (r *renderer) wrapped(s string, width int, buf *bytes.Buffer) {
	buf.WriteString(lipgloss.NewStyle().Width(width).Render(s))
	buf.WriteByte('\n')
}

func (r *renderer) fence(n *ast.FencedCodeBlock, buf *bytes.Buffer) {
	body := blockText(n, r.source)
	if tmpl := (deck.Infographic{Content: body}).Template(); tmpl != "" {
		buf.WriteString(r.template.Render("▣ " + tmpl))
		buf.WriteByte('\n')
	} else if lang := string(n.Language(r.source)); lang != "" {
		buf.WriteString(r.muted.Render(lang))
		buf.WriteByte('\n')
	}
	r.code(body, buf)
}

func (r *renderer) code(body string, buf *bytes.Buffer) {
	gutter := r.muted.Render("│") + " "
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		buf.WriteString(gutter)
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func (r *renderer) list(n *ast.List, width, depth int, buf *bytes.Buffer) {
	number := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "- "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", number)
			number++
		}
		prefix := strings.Repeat("  ", depth) + marker

		var content bytes.Buffer
		for ic := item.FirstChild(); ic != nil; ic = ic.NextSibling() {
			sub, nested := ic.(*ast.List)
			if !nested {
				content.WriteString(r.inlinesOf(ic))
				continue
			}
			if content.Len() > 0 {
				r.item(prefix, content.String(), width, buf)
				content.Reset()
			}
			r.list(sub, width, depth+1, buf)
			prefix = strings.Repeat(" ", len(prefix))
		}
		if content.Len() > 0 {
			r.item(prefix, content.String(), width, buf)
		}
	}
}

func (r *renderer) inlinesOf(n ast.Node) string {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return r.inlines(n)
	}
	var buf bytes.Buffer
	r.block(n, r.width, &buf)
	return buf.String()
}

// item writes one list entry, indenting continuation lines under the text.
func (r *renderer) item(prefix, content string, width int, buf *bytes.Buffer) {
	inner := max(width-len(prefix), 10)
	pad := strings.Repeat(" ", len(prefix))
	for i, line := range strings.Split(lipgloss.NewStyle().Width(inner).Render(content), "\n") {
		if i == 0 {
			buf.WriteString(prefix)
		} else {
			buf.WriteString(pad)
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func (r *renderer) inlines(node ast.Node) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.inline(c, &buf)
	}
	return buf.String()
}

func (r *renderer) inline(node ast.Node, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(r.source))
		switch {
		case n.HardLineBreak():
			buf.WriteByte('\n')
		case n.SoftLineBreak():
			buf.WriteByte(' ')
		}
	case *ast.String:
		buf.Write(n.Value)
	case *ast.Emphasis:
		style := r.bold
		if n.Level == 1 {
			style = r.italic
		}
		buf.WriteString(style.Render(r.inlines(n)))
	case *ast.CodeSpan:
		buf.WriteString(r.bold.Render(r.inlines(n)))
	case *ast.Link:
		r.reference(r.inlines(n), string(n.Destination), buf)
	case *ast.Image:
		r.reference(r.inlines(n), string(n.Destination), buf)
	case *ast.AutoLink:
		buf.WriteString(r.link.Render(string(n.URL(r.source))))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			buf.Write(n.Segments.At(i).Value(r.source))
		}
	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.inline(c, buf)
		}
	}
}

func (r *renderer) reference(label, url string, buf *bytes.Buffer) {
	buf.WriteString(r.link.Render(label))
	buf.WriteByte(' ')
	buf.WriteString(r.muted.Render("(" + url + ")"))
}
