// Package goldmark reads assistant markdown with goldmark: it renders it for
// the terminal and pulls infographic syntax out of fenced blocks.
package goldmark

import (
	"strings"

	"github.com/fwojciec/deck"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// syntaxLanguage is the fence info string models use for infographic syntax.
const syntaxLanguage = "plain"

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks keep their
// lines; blocks holding infographic syntax get a template header.
func Render(source string, width int, theme deck.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newRenderer(theme, width).render([]byte(source))
}

// ExtractSyntax returns the infographic syntax embedded in markdown. A
// ```plain fence wins, then any fence whose body starts with the infographic
// keyword, then the whole text when it is bare syntax.
func ExtractSyntax(markdown string) (string, bool) {
	source := []byte(markdown)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var plain, tagged string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		body := strings.TrimSpace(blockText(fence, source))
		switch {
		case body == "":
		case plain == "" && string(fence.Language(source)) == syntaxLanguage:
			plain = body
		case tagged == "" && isSyntax(body):
			tagged = body
		}
		return ast.WalkSkipChildren, nil
	})

	switch {
	case plain != "":
		return plain, true
	case tagged != "":
		return tagged, true
	}
	if bare := strings.TrimSpace(markdown); isSyntax(bare) {
		return bare, true
	}
	return "", false
}

func isSyntax(s string) bool {
	return deck.Infographic{Content: s}.Template() != ""
}

func blockText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
